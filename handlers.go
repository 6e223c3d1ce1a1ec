package folio

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eringen/folio/logger"
	"github.com/eringen/folio/markdown"
	"github.com/eringen/folio/store"
	"github.com/eringen/folio/views"
)

const recentPosts = 3

func (a *App) handleHome(c echo.Context) error {
	ctx := c.Request().Context()
	posts, err := a.Cache.ListPosts(ctx, "")
	if err != nil {
		return err
	}
	recent := newestFirst(posts)
	if len(recent) > recentPosts {
		recent = recent[:recentPosts]
	}
	pg := a.page(c, "home", "", "")
	pg.JSONLD = views.WebsiteJsonLD(pg.Site)
	return Render(c, a.Views.Home(views.HomeData{
		Page:     pg,
		Featured: a.Content.FeaturedProjects(),
		Recent:   a.postCards(ctx, recent),
	}))
}

func (a *App) handleAbout(c echo.Context) error {
	return Render(c, a.Views.About(views.AboutData{
		Page:   a.page(c, "about", "About", ""),
		Skills: a.Content.Skills,
	}))
}

func (a *App) handleProjects(c echo.Context) error {
	category := strings.TrimSpace(c.QueryParam("category"))
	return Render(c, a.Views.Projects(views.ProjectsData{
		Page:       a.page(c, "projects", "Projects", ""),
		Projects:   a.Content.ProjectsInCategory(category),
		Categories: a.Content.Categories(),
		Category:   category,
	}))
}

func (a *App) handleSkills(c echo.Context) error {
	return Render(c, a.Views.Skills(views.SkillsData{
		Page:   a.page(c, "skills", "Skills", ""),
		Skills: a.Content.Skills,
	}))
}

func (a *App) handleBlog(c echo.Context) error {
	ctx := c.Request().Context()
	tag := strings.TrimSpace(c.QueryParam("tag"))
	posts, err := a.Cache.ListPosts(ctx, tag)
	if err != nil {
		return err
	}
	tags, err := a.Cache.ListTags(ctx)
	if err != nil {
		return err
	}
	data := views.BlogData{
		Page:      a.page(c, "blog", "Blog", ""),
		Posts:     a.postCards(ctx, newestFirst(posts)),
		Tags:      tags,
		ActiveTag: tag,
	}
	if c.Request().Header.Get("HX-Request") == "true" && c.QueryParam("partial") == "posts" {
		return Render(c, a.Views.BlogList(data))
	}
	return Render(c, a.Views.Blog(data))
}

func (a *App) handlePost(c echo.Context) error {
	ctx := c.Request().Context()
	slug := c.Param("slug")
	cp, err := a.Cache.GetPost(ctx, slug)
	if errors.Is(err, store.ErrNotFound) && a.IsAdmin(c) {
		cp, err = a.draftPreview(c, slug)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return RenderStatus(c, http.StatusNotFound, a.Views.NotFound(a.page(c, "", "Not found", "")))
		}
		return err
	}

	published, err := a.Cache.ListPosts(ctx, "")
	if err != nil {
		return err
	}
	pg := a.page(c, "blog", cp.Title, cp.Summary)
	pg.Meta.OGType = "article"
	pg.JSONLD = views.BlogPostingJsonLD(pg.Site, cp.Post, cp.Summary)
	return Render(c, a.Views.Post(views.PostData{
		Page:        pg,
		Post:        cp.Document,
		ReadingTime: cp.ReadingTime,
		Related:     views.RelatedPosts(cp.Post, a.postCards(ctx, newestFirst(published)), 3),
	}))
}

// draftPreview lets an admin open an unpublished post at its public URL.
func (a *App) draftPreview(c echo.Context, slug string) (CachedPost, error) {
	ctx := c.Request().Context()
	doc, err := a.Store.GetPostBySlug(ctx, slug)
	if err != nil {
		return CachedPost{}, err
	}
	raw, err := a.Store.GetPostByID(ctx, doc.ID)
	if err != nil {
		return CachedPost{}, err
	}
	summary := doc.Excerpt
	if summary == "" {
		summary = markdown.Summary(raw.Content, summaryLength)
	}
	return CachedPost{Document: doc, ReadingTime: markdown.ReadingTime(raw.Content), Summary: summary}, nil
}

func (a *App) handleContact(c echo.Context) error {
	return Render(c, a.Views.Contact(views.ContactData{
		Page: a.page(c, "contact", "Contact", ""),
		Sent: c.QueryParam("sent") == "1",
	}))
}

func (a *App) handleContactSubmit(c echo.Context) error {
	var form store.NewContact
	if err := c.Bind(&form); err != nil {
		return c.String(http.StatusBadRequest, "Invalid form")
	}
	data := views.ContactData{
		Page: a.page(c, "contact", "Contact", ""),
		Form: form,
	}
	ip := c.RealIP()
	if !a.contactLimiter.Check(ip) {
		data.Error = tooManyRequests
		return RenderStatus(c, http.StatusTooManyRequests, a.Views.Contact(data))
	}
	req, err := a.Store.CreateContact(c.Request().Context(), form)
	if err != nil {
		var ve *store.ValidationError
		if errors.As(err, &ve) {
			data.Error = ve.Message
			return RenderStatus(c, http.StatusBadRequest, a.Views.Contact(data))
		}
		return err
	}
	a.contactLimiter.Record(ip)
	logger.InfoWithFields("contact request received", logger.Fields{"id": req.ID, "method": string(req.ContactMethod)})
	return c.Redirect(http.StatusSeeOther, "/contact/?sent=1")
}

func (a *App) handleSitemap(c echo.Context) error {
	posts, err := a.Cache.ListPosts(c.Request().Context(), "")
	if err != nil {
		return err
	}
	return a.renderSitemap(c, posts)
}

func (a *App) handleFeed(c echo.Context) error {
	ctx := c.Request().Context()
	posts, err := a.Cache.ListPosts(ctx, "")
	if err != nil {
		return err
	}
	return a.renderRSS(c, a.postCards(ctx, newestFirst(posts)))
}

func (a *App) handleRobots(c echo.Context) error {
	body := fmt.Sprintf("User-agent: *\nDisallow: /admin/\nDisallow: /api/\n\nSitemap: %s/sitemap.xml\n",
		strings.TrimRight(a.Config.URL, "/"))
	return c.String(http.StatusOK, body)
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := "Internal server error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		}
	}
	if code >= 500 {
		logger.ErrorWithFields("server error", logger.Fields{
			"method": c.Request().Method,
			"path":   c.Request().URL.Path,
			"error":  err.Error(),
		})
		msg = "Internal server error"
	}

	if isAPIRequest(c) {
		_ = jsonMessage(c, code, msg)
		return
	}
	switch {
	case code == http.StatusNotFound:
		_ = RenderStatus(c, code, a.Views.NotFound(a.page(c, "", "Not found", "")))
	case code >= 500:
		_ = RenderStatus(c, code, a.Views.ServerError(a.page(c, "", "Error", "")))
	default:
		a.Echo.DefaultHTTPErrorHandler(err, c)
	}
}
