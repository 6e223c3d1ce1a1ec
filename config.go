package folio

import (
	"path/filepath"
	"time"

	"github.com/eringen/folio/site"
	"github.com/eringen/folio/store"
)

// SiteConfig holds all configuration for a folio site.
type SiteConfig struct {
	Name        string // Site name (default "Portfolio")
	URL         string // Canonical URL (default "http://localhost:3000")
	Description string // Site description for RSS and meta tags
	Author      string // Author name for JSON-LD

	Addr string // Listen address (default ":3000")

	DataDir         string // posts.json, blog/, contacts.json (default "data")
	StorageDriver   string // "file" or "sqlite" (default "file")
	DatabasePath    string // SQLite path (default "<DataDir>/folio.db")
	StaticDir       string // user static assets and uploads (default "public")
	SiteContentPath string // profile/projects/skills YAML; empty uses the built-in content

	AdminUser         string // admin username (default "admin")
	AdminPassword     string // plain admin password, compared in constant time
	AdminPasswordHash string // bcrypt hash; takes precedence over AdminPassword
	SessionSecret     string // Required: session encryption secret
	TokenSecret       string // API token signing key (default SessionSecret)
	CookieSecure      bool   // Set true for HTTPS

	PostCacheTTL time.Duration // Post cache TTL (default 5min)
	DisableWatch bool          // skip the data directory watcher
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Portfolio"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.StorageDriver == "" {
		c.StorageDriver = store.DriverFile
	}
	if c.DatabasePath == "" {
		c.DatabasePath = filepath.Join(c.DataDir, "folio.db")
	}
	if c.StaticDir == "" {
		c.StaticDir = "public"
	}
	if c.AdminUser == "" {
		c.AdminUser = "admin"
	}
	if c.TokenSecret == "" {
		c.TokenSecret = c.SessionSecret
	}
	if c.PostCacheTTL == 0 {
		c.PostCacheTTL = 5 * time.Minute
	}
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App after the built-in routes are registered.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets the directory for user-owned static assets.
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.Config.StaticDir = dir
	}
}

// WithStore makes the App use s instead of opening the configured backend.
// The App takes ownership and closes s in Close.
func WithStore(s store.Store) Option {
	return func(a *App) {
		a.Store = s
	}
}

// WithRenderer sets the markdown renderer for post bodies. A store passed
// with WithStore should be opened with the same renderer.
func WithRenderer(render store.RenderFunc) Option {
	return func(a *App) {
		if render != nil {
			a.render = render
		}
	}
}

// WithSiteContent replaces the profile, projects and skills shown on the site.
func WithSiteContent(content site.Content) Option {
	return func(a *App) {
		a.Content = content
		a.contentSet = true
	}
}

// WithInsecureAuthBypass treats every request as authenticated as user.
// It exists for tests and local development only and is never read from
// configuration.
func WithInsecureAuthBypass(user string) Option {
	return func(a *App) {
		a.authBypass = user
	}
}
