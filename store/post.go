package store

import (
	"strings"
	"time"
	"unicode"
)

// Post is the metadata record of a blog post as kept in the index.
type Post struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Slug      string    `json:"slug"`
	Excerpt   string    `json:"excerpt"`
	Tags      []string  `json:"tags"`
	Published bool      `json:"published"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Document is a post together with its body. Depending on the read path the
// body is raw markdown or rendered HTML.
type Document struct {
	Post
	Content string `json:"content"`
}

// NewPost carries the fields accepted when creating a post.
type NewPost struct {
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	Excerpt   string   `json:"excerpt"`
	Tags      []string `json:"tags"`
	Published bool     `json:"published"`
}

// PostUpdate is a partial update. Nil fields keep their stored value, and so
// do an empty Title or Content. Tags replaces the stored tags whenever it is
// non-nil, even when it points at an empty slice.
type PostUpdate struct {
	Title     *string   `json:"title,omitempty"`
	Content   *string   `json:"content,omitempty"`
	Excerpt   *string   `json:"excerpt,omitempty"`
	Tags      *[]string `json:"tags,omitempty"`
	Published *bool     `json:"published,omitempty"`
}

// Validate reports the first missing required field.
func (p NewPost) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return &ValidationError{Field: "title", Message: "Title is required"}
	}
	if strings.TrimSpace(p.Content) == "" {
		return &ValidationError{Field: "content", Message: "Content is required"}
	}
	return nil
}

// apply merges u into p and reports whether the body changed.
func (u PostUpdate) apply(p *Post, now time.Time) (content string, contentChanged bool) {
	if u.Title != nil {
		if title := strings.TrimSpace(*u.Title); title != "" && title != p.Title {
			p.Title = title
			p.Slug = slugOrID(title, p.ID)
		}
	}
	if u.Excerpt != nil {
		p.Excerpt = *u.Excerpt
	}
	if u.Tags != nil {
		p.Tags = NormalizeTags(*u.Tags)
	}
	if u.Published != nil {
		p.Published = *u.Published
	}
	p.UpdatedAt = now
	if u.Content != nil && *u.Content != "" {
		return *u.Content, true
	}
	return "", false
}

// Slugify derives the URL slug of a title: lower-cased, everything except
// word characters and whitespace removed, whitespace runs replaced by "-".
func Slugify(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), "-")
}

// slugOrID falls back to the post id when a title has no slug characters.
func slugOrID(title, id string) string {
	if s := Slugify(title); s != "" {
		return s
	}
	return id
}

// NormalizeTags trims tags, drops empty ones and removes duplicates while
// keeping the first occurrence. The result is never nil.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
