// Package folio is a personal portfolio site built with Go and Echo.
// It serves a profile, projects and skills pages, a markdown blog backed by
// a file or SQLite store, a contact form, a JSON API and an admin dashboard.
//
// Pages are rendered through the ViewFuncs struct so a site can swap any
// of them; DefaultViews wires the built-in templates.
package folio

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/eringen/folio/logger"
	"github.com/eringen/folio/markdown"
	"github.com/eringen/folio/site"
	"github.com/eringen/folio/store"
	"github.com/eringen/folio/views"
)

// ViewFuncs holds the components the handlers call when rendering pages.
type ViewFuncs struct {
	Home           func(views.HomeData) templ.Component
	About          func(views.AboutData) templ.Component
	Projects       func(views.ProjectsData) templ.Component
	Skills         func(views.SkillsData) templ.Component
	Blog           func(views.BlogData) templ.Component
	BlogList       func(views.BlogData) templ.Component
	Post           func(views.PostData) templ.Component
	Contact        func(views.ContactData) templ.Component
	AdminLogin     func(views.LoginData) templ.Component
	AdminDashboard func(views.DashboardData) templ.Component
	AdminPostForm  func(views.PostFormData) templ.Component
	AdminImages    func(views.ImagesData) templ.Component
	NotFound       func(views.Page) templ.Component
	ServerError    func(views.Page) templ.Component
}

// DefaultViews returns the built-in templates.
func DefaultViews() ViewFuncs {
	return ViewFuncs{
		Home:           views.Home,
		About:          views.About,
		Projects:       views.Projects,
		Skills:         views.Skills,
		Blog:           views.Blog,
		BlogList:       views.BlogList,
		Post:           views.Post,
		Contact:        views.Contact,
		AdminLogin:     views.AdminLogin,
		AdminDashboard: views.AdminDashboard,
		AdminPostForm:  views.AdminPostForm,
		AdminImages:    views.AdminImages,
		NotFound:       views.NotFound,
		ServerError:    views.ServerError,
	}
}

// App is the central folio application. It wires together the store,
// cache, handlers, middleware and templates.
type App struct {
	Config  SiteConfig
	Echo    *echo.Echo
	Store   store.Store
	Cache   *PostCache
	Views   ViewFuncs
	Content site.Content

	loginLimiter   *RateLimiter
	contactLimiter *RateLimiter
	watcher        *DataWatcher
	render         store.RenderFunc
	customRoutes   []func(*App)
	contentSet     bool
	authBypass     string
	ready          bool
}

// New creates a new App with the given configuration and views.
func New(cfg SiteConfig, views ViewFuncs, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config: cfg,
		Echo:   echo.New(),
		Views:  views,
		render: markdown.Render,
	}
	a.Echo.HideBanner = true

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Setup opens the store, loads site content and registers middleware and
// routes. Start calls it; tests call it directly and drive a.Echo.
func (a *App) Setup() error {
	if a.ready {
		return nil
	}
	if a.Config.SessionSecret == "" {
		return errors.New("folio: SessionSecret is required")
	}
	if a.Config.TokenSecret == "" {
		a.Config.TokenSecret = a.Config.SessionSecret
	}
	if a.authBypass == "" && a.Config.AdminPassword == "" && a.Config.AdminPasswordHash == "" {
		return errors.New("folio: AdminPassword or AdminPasswordHash is required")
	}
	if a.authBypass != "" {
		logger.WarnWithFields("admin authentication bypass is enabled", logger.Fields{"user": a.authBypass})
	}

	if a.Store == nil {
		s, err := store.Open(a.Config.StorageDriver, a.Config.DataDir, a.Config.DatabasePath, a.render)
		if err != nil {
			return fmt.Errorf("folio: init store: %w", err)
		}
		a.Store = s
	}

	if !a.contentSet {
		content, err := site.Load(a.Config.SiteContentPath)
		if err != nil {
			return fmt.Errorf("folio: load site content: %w", err)
		}
		a.Content = content
	}

	a.Cache = NewPostCache(a.Store, a.Config.PostCacheTTL, a.render)
	a.loginLimiter = NewRateLimiter(5, time.Minute)
	a.contactLimiter = NewRateLimiter(5, 10*time.Minute)

	if fsStore, ok := a.Store.(*store.FileStore); ok && !a.Config.DisableWatch {
		w, err := WatchDataDir(fsStore.Dir(), a.Cache.Invalidate)
		if err != nil {
			logger.WarnWithFields("data watcher disabled", logger.Fields{"error": err.Error()})
		} else {
			a.watcher = w
		}
	}

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}

	a.ready = true
	return nil
}

// Start runs Setup and serves HTTP until the server stops.
func (a *App) Start() error {
	if err := a.Setup(); err != nil {
		return err
	}
	logger.InfoWithFields("server starting", logger.Fields{
		"addr":    a.Config.Addr,
		"storage": a.Config.StorageDriver,
	})
	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	// Embedded stylesheet; everything else under /public comes from StaticDir.
	embeddedFS, _ := fs.Sub(EmbeddedAssets, "embedded")
	embeddedHandler := http.FileServer(http.FS(embeddedFS))
	e.GET("/public/style.css", echo.WrapHandler(http.StripPrefix("/public/", embeddedHandler)))

	e.Static("/public", a.Config.StaticDir)
	e.GET("/robots.txt", a.handleRobots)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)

	// Public pages
	e.GET("/", a.handleHome)
	e.GET("/about/", a.handleAbout)
	e.GET("/projects/", a.handleProjects)
	e.GET("/skills/", a.handleSkills)
	e.GET("/blog/", a.handleBlog)
	e.GET("/blog/:slug/", a.handlePost)
	e.GET("/contact/", a.handleContact)
	e.POST("/contact/", a.handleContactSubmit)

	// JSON API
	api := e.Group("/api")
	api.GET("/posts", a.handleAPIPosts)
	api.POST("/posts", a.requireAdminAPI(a.handleAPICreatePost))
	api.PUT("/posts", a.requireAdminAPI(a.handleAPIUpdatePost))
	api.DELETE("/posts", a.requireAdminAPI(a.handleAPIDeletePost))
	api.POST("/contacts", a.handleAPICreateContact)
	api.GET("/contacts", a.requireAdminAPI(a.handleAPIListContacts))
	api.PUT("/contacts", a.requireAdminAPI(a.handleAPIUpdateContact))
	api.DELETE("/contacts", a.requireAdminAPI(a.handleAPIDeleteContact))
	api.POST("/auth/login", a.handleAPILogin)

	// Admin
	e.GET("/admin/", a.handleAdmin)
	e.POST("/admin/login/", a.handleAdminLogin)
	e.POST("/admin/logout/", a.handleAdminLogout)
	e.GET("/admin/posts/new/", a.requireAdmin(a.handleAdminNewPost))
	e.GET("/admin/posts/:id/", a.requireAdmin(a.handleAdminEditPost))
	e.POST("/admin/posts/save/", a.requireAdmin(a.handleAdminSavePost))
	e.POST("/admin/posts/:id/delete/", a.requireAdmin(a.handleAdminDeletePost))
	e.POST("/admin/contacts/:id/read/", a.requireAdmin(a.handleAdminToggleContact))
	e.POST("/admin/contacts/:id/delete/", a.requireAdmin(a.handleAdminDeleteContact))
	e.GET("/admin/images/", a.requireAdmin(a.handleImageList))
	e.POST("/admin/images/upload/", a.requireAdmin(a.handleImageUpload))
	e.POST("/admin/images/:filename/delete/", a.requireAdmin(a.handleImageDelete))
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.watcher != nil {
		a.watcher.Close()
	}
	if a.loginLimiter != nil {
		a.loginLimiter.Stop()
	}
	if a.contactLimiter != nil {
		a.contactLimiter.Stop()
	}
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}
