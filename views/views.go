// Package views renders folio's HTML pages. Templates are embedded
// html/template files; every page is exposed as a templ.Component so
// handlers render them through the same Render helpers.
package views

import (
	"context"
	"embed"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/eringen/folio/markdown"
)

//go:embed templates
var templateFS embed.FS

var funcs = template.FuncMap{
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("Jan 2, 2006")
	},
	"isoDate": func(t time.Time) string {
		return t.UTC().Format(time.RFC3339)
	},
	"joinTags": JoinTags,
	"safeURL": func(s string) template.URL {
		return template.URL(markdown.SafeURL(s))
	},
	"pathEscape": PathEscape,
	"rawHTML": func(s string) template.HTML {
		return template.HTML(s)
	},
	"jsonLD": func(s string) template.JS {
		return template.JS(s)
	},
	"tagURL": func(tag string) string {
		return "/blog/?tag=" + QueryEscape(tag)
	},
	"navClass": func(active, name string) string {
		if active == name {
			return "nav-link active"
		}
		return "nav-link"
	},
	"kb": func(n int64) int64 {
		return (n + 1023) / 1024
	},
}

var pages = mustParsePages()

func mustParsePages() map[string]*template.Template {
	base := template.Must(template.New("base").Funcs(funcs).ParseFS(templateFS, "templates/layout/*.html"))
	names, err := fs.Glob(templateFS, "templates/pages/*.html")
	if err != nil {
		panic(err)
	}
	out := make(map[string]*template.Template, len(names))
	for _, name := range names {
		t := template.Must(template.Must(base.Clone()).ParseFS(templateFS, name))
		out[strings.TrimSuffix(path.Base(name), ".html")] = t
	}
	return out
}

// page returns a component executing the "layout" template of the named page.
func page(name string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return pages[name].ExecuteTemplate(w, "layout", data)
	})
}

// fragment returns a component executing a single named template of a page
// without the surrounding layout.
func fragment(name, tmpl string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return pages[name].ExecuteTemplate(w, tmpl, data)
	})
}

func Home(d HomeData) templ.Component         { return page("home", d) }
func About(d AboutData) templ.Component       { return page("about", d) }
func Projects(d ProjectsData) templ.Component { return page("projects", d) }
func Skills(d SkillsData) templ.Component     { return page("skills", d) }
func Blog(d BlogData) templ.Component         { return page("blog", d) }
func Post(d PostData) templ.Component         { return page("post", d) }
func Contact(d ContactData) templ.Component   { return page("contact", d) }
func NotFound(d Page) templ.Component         { return page("notfound", d) }
func ServerError(d Page) templ.Component      { return page("servererror", d) }

// BlogList renders only the post list, for tag filtering without a reload.
func BlogList(d BlogData) templ.Component { return fragment("blog", "posts", d) }

func AdminLogin(d LoginData) templ.Component         { return page("admin_login", d) }
func AdminDashboard(d DashboardData) templ.Component { return page("admin_dashboard", d) }
func AdminPostForm(d PostFormData) templ.Component   { return page("admin_post", d) }
func AdminImages(d ImagesData) templ.Component       { return page("admin_images", d) }
