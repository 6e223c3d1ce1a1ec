package folio

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/folio/store"
)

func TestPublicPages(t *testing.T) {
	app := newTestApp(t, testConfig(t))
	mustCreatePost(t, app, store.NewPost{Title: "Visible Post", Content: "hello", Published: true})

	tests := []struct {
		path string
		want string
	}{
		{"/", "Visible Post"},
		{"/about/", "<title>About | Test Site</title>"},
		{"/projects/", "<title>Projects | Test Site</title>"},
		{"/skills/", "<title>Skills | Test Site</title>"},
		{"/blog/", "Visible Post"},
		{"/contact/", `name="_csrf"`},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := serve(app, httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
			assert.Contains(t, rec.Body.String(), tt.want)
			assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
		})
	}
}

func TestTrailingSlashRedirect(t *testing.T) {
	app := newTestApp(t, testConfig(t))
	rec := serve(app, httptest.NewRequest(http.MethodGet, "/about", nil))
	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "/about/", rec.Header().Get("Location"))
}

func TestNotFoundPage(t *testing.T) {
	app := newTestApp(t, testConfig(t))
	for _, path := range []string{"/no-such-page/", "/blog/no-such-post/"} {
		rec := serve(app, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/html", path)
	}
}

func TestPostPage(t *testing.T) {
	app := newTestApp(t, testConfig(t))
	p := mustCreatePost(t, app, store.NewPost{
		Title:     "Markdown Post",
		Content:   "## Section\n\nSome **bold** text.",
		Tags:      []string{"go"},
		Published: true,
	})
	mustCreatePost(t, app, store.NewPost{Title: "Related One", Content: "x", Tags: []string{"Go"}, Published: true})
	mustCreatePost(t, app, store.NewPost{Title: "Hidden Draft", Content: "x"})

	rec := serve(app, httptest.NewRequest(http.MethodGet, "/blog/"+p.Slug+"/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Markdown Post")
	assert.Contains(t, body, "<strong>bold</strong>")
	assert.Contains(t, body, "Related One")
	assert.Contains(t, body, "application/ld+json")

	rec = serve(app, httptest.NewRequest(http.MethodGet, "/blog/hidden-draft/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDraftPreviewForAdmin(t *testing.T) {
	cfg := testConfig(t)
	app := newTestApp(t, cfg, WithInsecureAuthBypass("admin"))
	mustCreatePost(t, app, store.NewPost{Title: "Hidden Draft", Content: "draft *body*"})

	rec := serve(app, httptest.NewRequest(http.MethodGet, "/blog/hidden-draft/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<em>body</em>")
}

func TestBlogTagFilter(t *testing.T) {
	app := newTestApp(t, testConfig(t))
	mustCreatePost(t, app, store.NewPost{Title: "Go Post", Content: "x", Tags: []string{"Go"}, Published: true})
	mustCreatePost(t, app, store.NewPost{Title: "Rust Post", Content: "x", Tags: []string{"rust"}, Published: true})

	rec := serve(app, httptest.NewRequest(http.MethodGet, "/blog/?tag=go", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Go Post")
	assert.NotContains(t, rec.Body.String(), "Rust Post")

	req := httptest.NewRequest(http.MethodGet, "/blog/?tag=rust&partial=posts", nil)
	req.Header.Set("HX-Request", "true")
	rec = serve(app, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Rust Post")
	assert.NotContains(t, rec.Body.String(), "<html")
}

func TestContactForm(t *testing.T) {
	app := newTestApp(t, testConfig(t))

	rec := serve(app, withCSRF(formRequest("/contact/", url.Values{
		"name":          {"Grace"},
		"email":         {"grace@example.com"},
		"message":       {"Let's talk"},
		"contactMethod": {"email"},
	})))
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, "/contact/?sent=1", rec.Header().Get("Location"))

	contacts, err := app.Store.ListContacts(context.Background())
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "Grace", contacts[0].Name)

	rec = serve(app, httptest.NewRequest(http.MethodGet, "/contact/?sent=1", nil))
	assert.Contains(t, rec.Body.String(), "has been sent")

	rec = serve(app, withCSRF(formRequest("/contact/", url.Values{
		"name":          {"Grace"},
		"contactMethod": {"discord"},
		"discord":       {"grace"},
	})))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Message is required")
	assert.Contains(t, rec.Body.String(), `value="Grace"`)
}

func TestContactFormRequiresCSRF(t *testing.T) {
	app := newTestApp(t, testConfig(t))
	rec := serve(app, formRequest("/contact/", url.Values{
		"name":          {"Grace"},
		"message":       {"hi"},
		"contactMethod": {"discord"},
		"discord":       {"grace"},
	}))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestContactFormRateLimit(t *testing.T) {
	app := newTestApp(t, testConfig(t))
	form := url.Values{"name": {"G"}, "message": {"hi"}, "contactMethod": {"discord"}, "discord": {"g"}}
	for i := 0; i < 5; i++ {
		rec := serve(app, withCSRF(formRequest("/contact/", form)))
		require.Equal(t, http.StatusSeeOther, rec.Code)
	}
	rec := serve(app, withCSRF(formRequest("/contact/", form)))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestContactFormRejectionsDoNotCountTowardLimit(t *testing.T) {
	app := newTestApp(t, testConfig(t))
	bad := url.Values{"name": {"G"}, "contactMethod": {"discord"}, "discord": {"g"}}
	for i := 0; i < 6; i++ {
		rec := serve(app, withCSRF(formRequest("/contact/", bad)))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	}
	bad.Set("message", "hi")
	rec := serve(app, withCSRF(formRequest("/contact/", bad)))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestRobotsSitemapFeed(t *testing.T) {
	app := newTestApp(t, testConfig(t))
	p := mustCreatePost(t, app, store.NewPost{Title: "Feed Item", Content: "x", Excerpt: "Short", Published: true})
	mustCreatePost(t, app, store.NewPost{Title: "Unlisted", Content: "x"})

	rec := serve(app, httptest.NewRequest(http.MethodGet, "/robots.txt", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Disallow: /admin/")
	assert.Contains(t, rec.Body.String(), "Sitemap: https://example.com/sitemap.xml")

	rec = serve(app, httptest.NewRequest(http.MethodGet, "/sitemap.xml", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<loc>https://example.com/</loc>")
	assert.Contains(t, body, "<loc>https://example.com/about/</loc>")
	assert.Contains(t, body, "<loc>https://example.com/blog/"+p.Slug+"/</loc>")
	assert.NotContains(t, body, "unlisted")

	rec = serve(app, httptest.NewRequest(http.MethodGet, "/feed.xml", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body = rec.Body.String()
	assert.True(t, strings.Contains(body, "<rss"), body)
	assert.Contains(t, body, "Feed Item")
	assert.Contains(t, body, "Short")
	assert.NotContains(t, body, "Unlisted")
}

func TestCacheControlHeaders(t *testing.T) {
	app := newTestApp(t, testConfig(t))
	tests := []struct {
		path string
		want string
	}{
		{"/", "public, max-age=3600"},
		{"/contact/", "no-store"},
		{"/admin/", "no-store"},
		{"/api/posts", "no-store"},
		{"/robots.txt", "public, max-age=86400"},
		{"/public/style.css", "public, max-age=31536000, immutable"},
	}
	for _, tt := range tests {
		rec := serve(app, httptest.NewRequest(http.MethodGet, tt.path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, tt.path)
		assert.Equal(t, tt.want, rec.Header().Get("Cache-Control"), tt.path)
	}
}

func TestOptionsCustomRoutesAndStaticDir(t *testing.T) {
	static := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(static, "hello.txt"), []byte("static hello"), 0o644))

	app := newTestApp(t, testConfig(t),
		WithStaticDir(static),
		WithCustomRoutes(func(a *App) {
			a.Echo.GET("/now/", func(c echo.Context) error {
				return c.String(http.StatusOK, "custom "+a.Config.Name)
			})
		}),
	)

	rec := serve(app, httptest.NewRequest(http.MethodGet, "/now/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "custom Test Site", rec.Body.String())

	rec = serve(app, httptest.NewRequest(http.MethodGet, "/public/hello.txt", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "static hello", rec.Body.String())
}
