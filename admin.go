package folio

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eringen/folio/logger"
	"github.com/eringen/folio/store"
	"github.com/eringen/folio/views"
)

func (a *App) handleAdmin(c echo.Context) error {
	p, err := a.Authenticate(c)
	if err != nil {
		return Render(c, a.Views.AdminLogin(views.LoginData{Page: a.page(c, "admin", "Admin", "")}))
	}
	return a.renderAdminDashboard(c, p, c.QueryParam("msg"))
}

func (a *App) handleAdminLogin(c echo.Context) error {
	ip := c.RealIP()
	data := views.LoginData{Page: a.page(c, "admin", "Admin", "")}
	if !a.loginLimiter.Check(ip) {
		data.Locked = true
		return RenderStatus(c, http.StatusTooManyRequests, a.Views.AdminLogin(data))
	}
	var in loginRequest
	if err := c.Bind(&in); err != nil {
		return c.String(http.StatusBadRequest, "Invalid form")
	}
	if in.Username == "" {
		in.Username = a.Config.AdminUser
	}
	if !a.checkCredentials(in.Username, in.Password) {
		a.loginLimiter.Record(ip)
		logger.WarnWithFields("failed admin login", logger.Fields{"ip": ip})
		data.ShowError = true
		return Render(c, a.Views.AdminLogin(data))
	}
	a.loginLimiter.Reset(ip)
	if err := setAdminSession(c, a.Config.AdminUser); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/")
}

func (a *App) handleAdminLogout(c echo.Context) error {
	if err := clearAdminSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/")
}

func (a *App) handleAdminNewPost(c echo.Context, _ Principal) error {
	return Render(c, a.Views.AdminPostForm(views.PostFormData{
		Page:  a.page(c, "admin", "New post", ""),
		IsNew: true,
	}))
}

func (a *App) handleAdminEditPost(c echo.Context, _ Principal) error {
	doc, err := a.Store.GetPostByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return RenderStatus(c, http.StatusNotFound, a.Views.NotFound(a.page(c, "", "Not found", "")))
		}
		return err
	}
	return Render(c, a.Views.AdminPostForm(views.PostFormData{
		Page: a.page(c, "admin", "Edit post", ""),
		Post: doc,
	}))
}

func (a *App) handleAdminSavePost(c echo.Context, p Principal) error {
	if err := c.Request().ParseForm(); err != nil {
		return err
	}
	ctx := c.Request().Context()
	id := strings.TrimSpace(c.FormValue("id"))
	title := strings.TrimSpace(c.FormValue("title"))
	excerpt := strings.TrimSpace(c.FormValue("excerpt"))
	content := c.FormValue("content")
	tags := ParseTags(c.FormValue("tags"))
	published := c.FormValue("published") != ""

	var (
		post store.Post
		err  error
	)
	if id == "" {
		post, err = a.Store.CreatePost(ctx, store.NewPost{
			Title:     title,
			Content:   content,
			Excerpt:   excerpt,
			Tags:      tags,
			Published: published,
		})
	} else {
		post, err = a.Store.UpdatePost(ctx, id, store.PostUpdate{
			Title:     &title,
			Content:   &content,
			Excerpt:   &excerpt,
			Tags:      &tags,
			Published: &published,
		})
	}
	if err != nil {
		var ve *store.ValidationError
		switch {
		case errors.As(err, &ve):
			return RenderStatus(c, http.StatusBadRequest, a.Views.AdminPostForm(views.PostFormData{
				Page: a.page(c, "admin", "Edit post", ""),
				Post: store.Document{
					Post:    store.Post{ID: id, Title: title, Excerpt: excerpt, Tags: tags, Published: published},
					Content: content,
				},
				IsNew: id == "",
				Error: ve.Message,
			}))
		case errors.Is(err, store.ErrNotFound):
			return RenderStatus(c, http.StatusNotFound, a.Views.NotFound(a.page(c, "", "Not found", "")))
		}
		return err
	}
	a.Cache.Invalidate()
	logPostChange("post saved", p, post)
	return redirectWithMessage(c, "/admin/", "Post saved")
}

func (a *App) handleAdminDeletePost(c echo.Context, p Principal) error {
	id := c.Param("id")
	if err := a.Store.DeletePost(c.Request().Context(), id); err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	a.Cache.Invalidate()
	logPostChange("post deleted", p, store.Post{ID: id})
	return redirectWithMessage(c, "/admin/", "Post deleted")
}

// handleAdminToggleContact marks a contact request read, or unread when the
// form sends read=0.
func (a *App) handleAdminToggleContact(c echo.Context, _ Principal) error {
	read := c.FormValue("read") != "0"
	_, err := a.Store.SetContactRead(c.Request().Context(), c.Param("id"), read)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/")
}

func (a *App) handleAdminDeleteContact(c echo.Context, _ Principal) error {
	err := a.Store.DeleteContact(c.Request().Context(), c.Param("id"))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return redirectWithMessage(c, "/admin/", "Contact request deleted")
}

func (a *App) renderAdminDashboard(c echo.Context, _ Principal, msg string) error {
	ctx := c.Request().Context()
	posts, err := a.Store.ListPosts(ctx)
	if err != nil {
		return err
	}
	contacts, err := a.Store.ListContacts(ctx)
	if err != nil {
		return err
	}
	unread := 0
	for _, r := range contacts {
		if !r.Read {
			unread++
		}
	}
	pg := a.page(c, "admin", "Dashboard", "")
	pg.Admin = true
	return Render(c, a.Views.AdminDashboard(views.DashboardData{
		Page:     pg,
		Posts:    newestFirst(posts),
		Contacts: contacts,
		Unread:   unread,
		Message:  msg,
	}))
}

func redirectWithMessage(c echo.Context, path, msg string) error {
	return c.Redirect(http.StatusSeeOther, path+"?msg="+url.QueryEscape(msg))
}
