package folio

import (
	"context"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/folio/store"
	"github.com/eringen/folio/views"
)

const timeFormat = time.RFC3339

// FilterEmpty removes empty/whitespace-only strings from a slice.
func FilterEmpty(vals []string) []string {
	var out []string
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ParseTags splits a comma separated tag list.
func ParseTags(s string) []string {
	return store.NormalizeTags(FilterEmpty(strings.Split(s, ",")))
}

func (a *App) siteConfig() views.SiteConfig {
	return views.SiteConfig{
		Name:        a.Config.Name,
		URL:         a.Config.URL,
		Description: a.Config.Description,
		Author:      a.Config.Author,
	}
}

// page builds the data shared by every full page.
func (a *App) page(c echo.Context, active, title, description string) views.Page {
	if description == "" {
		description = a.Config.Description
	}
	return views.Page{
		Site: a.siteConfig(),
		Meta: views.PageMeta{
			Title:       title,
			Description: description,
			URL:         strings.TrimRight(a.Config.URL, "/") + c.Request().URL.Path,
			OGType:      "website",
		},
		Active:  active,
		CSRF:    CsrfToken(c),
		Admin:   a.IsAdmin(c),
		Profile: a.Content.Profile,
		Social:  a.Content.SocialLinks,
		Year:    time.Now().Year(),
	}
}

func (a *App) postCards(ctx context.Context, posts []store.Post) []views.PostCard {
	cards := make([]views.PostCard, 0, len(posts))
	for _, p := range posts {
		cards = append(cards, views.PostCard{
			Post:    p,
			Summary: a.Cache.Summary(ctx, p),
			URL:     views.PostURL(p.Slug),
		})
	}
	return cards
}
