package folio

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/image/draw"

	"github.com/eringen/folio/store"
	"github.com/eringen/folio/views"
)

const (
	maxImageWidth = 800
	jpegQuality   = 80
	maxUploadSize = 10 << 20 // 10MB
	uploadsSubdir = "uploads"
)

// processImage decodes an image from src, resizes it to maxImageWidth when
// wider, and encodes it as JPEG.
func processImage(src io.Reader, originalName string) (views.Image, []byte, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return views.Image{}, nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if w > maxImageWidth {
		newH := h * maxImageWidth / w
		dst := image.NewRGBA(image.Rect(0, 0, maxImageWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
		w = maxImageWidth
		h = newH
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return views.Image{}, nil, fmt.Errorf("encode jpeg: %w", err)
	}

	return views.Image{
		Filename:   slugifyFilename(originalName) + ".jpg",
		Width:      w,
		Height:     h,
		Size:       int64(buf.Len()),
		UploadedAt: time.Now().UTC().Format(timeFormat),
	}, buf.Bytes(), nil
}

// slugifyFilename converts a filename (without extension) to a URL-safe slug.
func slugifyFilename(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if s := store.Slugify(base); s != "" {
		return s
	}
	return "image"
}

func (a *App) uploadsDir() string {
	return filepath.Join(a.Config.StaticDir, uploadsSubdir)
}

// ensureUniqueFilename appends a counter if filename already exists.
func (a *App) ensureUniqueFilename(img *views.Image) {
	base := strings.TrimSuffix(img.Filename, ".jpg")
	candidate := img.Filename
	for counter := 2; ; counter++ {
		if _, err := os.Stat(filepath.Join(a.uploadsDir(), candidate)); errors.Is(err, os.ErrNotExist) {
			break
		}
		candidate = fmt.Sprintf("%s-%d.jpg", base, counter)
	}
	img.Filename = candidate
}

// listImages scans the uploads directory, newest first.
func (a *App) listImages() ([]views.Image, error) {
	entries, err := os.ReadDir(a.uploadsDir())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	images := make([]views.Image, 0, len(entries))
	mod := make(map[string]time.Time, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".jpg") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		img := views.Image{
			Filename:   e.Name(),
			URL:        "/public/" + uploadsSubdir + "/" + e.Name(),
			Size:       info.Size(),
			UploadedAt: info.ModTime().UTC().Format(timeFormat),
		}
		if f, err := os.Open(filepath.Join(a.uploadsDir(), e.Name())); err == nil {
			if cfg, _, err := image.DecodeConfig(f); err == nil {
				img.Width, img.Height = cfg.Width, cfg.Height
			}
			f.Close()
		}
		mod[e.Name()] = info.ModTime()
		images = append(images, img)
	}
	sort.Slice(images, func(i, j int) bool { return mod[images[i].Filename].After(mod[images[j].Filename]) })
	return images, nil
}

func (a *App) handleImageUpload(c echo.Context, _ Principal) error {
	file, err := c.FormFile("image")
	if err != nil {
		return c.String(http.StatusBadRequest, "No image file provided")
	}
	if file.Size > maxUploadSize {
		return c.String(http.StatusBadRequest, "File too large (max 10MB)")
	}

	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	img, data, err := processImage(src, file.Filename)
	if err != nil {
		return c.String(http.StatusBadRequest, "Invalid image: "+err.Error())
	}

	if err := os.MkdirAll(a.uploadsDir(), 0o755); err != nil {
		return fmt.Errorf("create uploads dir: %w", err)
	}
	a.ensureUniqueFilename(&img)
	if err := os.WriteFile(filepath.Join(a.uploadsDir(), img.Filename), data, 0o644); err != nil {
		return fmt.Errorf("write image: %w", err)
	}

	return a.renderImageList(c, "Uploaded "+img.Filename)
}

func (a *App) handleImageDelete(c echo.Context, _ Principal) error {
	filename := c.Param("filename")
	if filename == "" || filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		return c.String(http.StatusBadRequest, "Invalid filename")
	}
	err := os.Remove(filepath.Join(a.uploadsDir(), filename))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return a.renderImageList(c, "Deleted "+filename)
}

func (a *App) handleImageList(c echo.Context, _ Principal) error {
	return a.renderImageList(c, "")
}

func (a *App) renderImageList(c echo.Context, msg string) error {
	images, err := a.listImages()
	if err != nil {
		return err
	}
	pg := a.page(c, "admin", "Images", "")
	pg.Admin = true
	return Render(c, a.Views.AdminImages(views.ImagesData{Page: pg, Images: images, Message: msg}))
}
