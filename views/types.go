package views

import (
	"github.com/eringen/folio/site"
	"github.com/eringen/folio/store"
)

// SiteConfig holds site-wide settings passed to every template.
type SiteConfig struct {
	Name        string
	URL         string
	Description string
	Author      string
}

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
}

// Image is an uploaded image in the admin library.
type Image struct {
	Filename   string
	URL        string
	Width      int
	Height     int
	Size       int64
	UploadedAt string
}

// Page is the data shared by every full page.
type Page struct {
	Site    SiteConfig
	Meta    PageMeta
	Active  string
	CSRF    string
	Admin   bool
	Profile site.Profile
	Social  []site.SocialLink
	Year    int
	JSONLD  string
}

// PostCard is a post as shown in listings.
type PostCard struct {
	store.Post
	Summary string
	URL     string
}

type HomeData struct {
	Page
	Featured []site.Project
	Recent   []PostCard
}

type AboutData struct {
	Page
	Skills []site.SkillCategory
}

type ProjectsData struct {
	Page
	Projects   []site.Project
	Categories []string
	Category   string
}

type SkillsData struct {
	Page
	Skills []site.SkillCategory
}

type BlogData struct {
	Page
	Posts     []PostCard
	Tags      []string
	ActiveTag string
}

type PostData struct {
	Page
	Post        store.Document
	ReadingTime int
	Related     []PostCard
}

type ContactData struct {
	Page
	Form  store.NewContact
	Error string
	Sent  bool
}

type LoginData struct {
	Page
	ShowError bool
	Locked    bool
}

type DashboardData struct {
	Page
	Posts    []store.Post
	Contacts []store.ContactRequest
	Unread   int
	Message  string
}

type PostFormData struct {
	Page
	Post  store.Document
	IsNew bool
	Error string
}

type ImagesData struct {
	Page
	Images  []Image
	Message string
}
