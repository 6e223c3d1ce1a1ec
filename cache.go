package folio

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/eringen/folio/markdown"
	"github.com/eringen/folio/store"
)

const summaryLength = 180

// CachedPost is a published post with its rendered body.
type CachedPost struct {
	store.Document
	ReadingTime int
	Summary     string
}

// PostCache is an in-memory cache of published posts and their rendered
// bodies with a TTL. Any mutation must call Invalidate.
type PostCache struct {
	mu        sync.RWMutex
	posts     []store.Post
	tags      []string
	docs      map[string]CachedPost
	summaries map[string]string
	fetched   time.Time
	gen       uint64
	ttl       time.Duration
	store     store.PostStore
	render    store.RenderFunc
}

// NewPostCache creates a PostCache backed by the given store. Bodies are
// rendered with render, or markdown.Render when it is nil.
func NewPostCache(s store.PostStore, ttl time.Duration, render store.RenderFunc) *PostCache {
	if render == nil {
		render = markdown.Render
	}
	return &PostCache{store: s, ttl: ttl, render: render}
}

func (c *PostCache) valid() bool {
	return c.posts != nil && time.Since(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *PostCache) Invalidate() {
	c.mu.Lock()
	c.posts = nil
	c.tags = nil
	c.docs = nil
	c.summaries = nil
	c.gen++
	c.mu.Unlock()
}

func (c *PostCache) load(ctx context.Context) error {
	if c.valid() {
		return nil
	}
	all, err := c.store.ListPosts(ctx)
	if err != nil {
		return err
	}
	posts := make([]store.Post, 0, len(all))
	set := make(map[string]string)
	for _, p := range all {
		if !p.Published {
			continue
		}
		posts = append(posts, p)
		for _, t := range p.Tags {
			key := normalizeTag(t)
			if _, ok := set[key]; !ok {
				set[key] = t
			}
		}
	}
	tags := make([]string, 0, len(set))
	for _, t := range set {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool { return normalizeTag(tags[i]) < normalizeTag(tags[j]) })

	c.posts = posts
	c.tags = tags
	c.docs = make(map[string]CachedPost)
	c.summaries = make(map[string]string)
	c.fetched = time.Now()
	c.gen++
	return nil
}

// ensureLoaded returns cached posts and tags after ensuring the cache is fresh,
// along with the generation they belong to.
// It tries a read lock first; only takes a write lock if a reload is needed.
func (c *PostCache) ensureLoaded(ctx context.Context) ([]store.Post, []string, uint64, error) {
	c.mu.RLock()
	if c.valid() {
		posts, tags, gen := c.posts, c.tags, c.gen
		c.mu.RUnlock()
		return posts, tags, gen, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.load(ctx); err != nil {
		return nil, nil, 0, err
	}
	return c.posts, c.tags, c.gen, nil
}

// ListPosts returns published posts in storage order, optionally filtered
// by tag (case-insensitive).
func (c *PostCache) ListPosts(ctx context.Context, tag string) ([]store.Post, error) {
	posts, _, _, err := c.ensureLoaded(ctx)
	if err != nil {
		return nil, err
	}
	if tag == "" {
		return posts, nil
	}
	normalized := normalizeTag(tag)
	filtered := []store.Post{}
	for _, p := range posts {
		for _, t := range p.Tags {
			if normalizeTag(t) == normalized {
				filtered = append(filtered, p)
				break
			}
		}
	}
	return filtered, nil
}

// ListTags returns the unique tags of published posts, sorted.
func (c *PostCache) ListTags(ctx context.Context) ([]string, error) {
	_, tags, _, err := c.ensureLoaded(ctx)
	return tags, err
}

// GetPost returns the first published post with slug, rendered. A document
// built across an Invalidate is returned but not kept.
func (c *PostCache) GetPost(ctx context.Context, slug string) (CachedPost, error) {
	posts, _, gen, err := c.ensureLoaded(ctx)
	if err != nil {
		return CachedPost{}, err
	}
	c.mu.RLock()
	cp, ok := c.docs[slug]
	c.mu.RUnlock()
	if ok {
		return cp, nil
	}

	var found *store.Post
	for i := range posts {
		if posts[i].Slug == slug {
			found = &posts[i]
			break
		}
	}
	if found == nil {
		return CachedPost{}, store.ErrNotFound
	}
	cp, err = c.build(ctx, found.ID)
	if err != nil {
		return CachedPost{}, err
	}

	c.mu.Lock()
	if c.docs != nil && c.gen == gen {
		c.docs[slug] = cp
	}
	c.mu.Unlock()
	return cp, nil
}

func (c *PostCache) build(ctx context.Context, id string) (CachedPost, error) {
	doc, err := c.store.GetPostByID(ctx, id)
	if err != nil {
		return CachedPost{}, err
	}
	html, err := c.render(doc.Content)
	if err != nil {
		return CachedPost{}, err
	}
	summary := doc.Excerpt
	if summary == "" {
		summary = markdown.Summary(doc.Content, summaryLength)
	}
	return CachedPost{
		Document:    store.Document{Post: doc.Post, Content: html},
		ReadingTime: markdown.ReadingTime(doc.Content),
		Summary:     summary,
	}, nil
}

// Summary returns the excerpt of p, or a summary of its body when the
// excerpt is empty.
func (c *PostCache) Summary(ctx context.Context, p store.Post) string {
	if p.Excerpt != "" {
		return p.Excerpt
	}
	c.mu.RLock()
	s, ok := c.summaries[p.ID]
	gen := c.gen
	c.mu.RUnlock()
	if ok {
		return s
	}
	doc, err := c.store.GetPostByID(ctx, p.ID)
	if err != nil {
		return ""
	}
	s = markdown.Summary(doc.Content, summaryLength)
	c.mu.Lock()
	if c.summaries != nil && c.gen == gen {
		c.summaries[p.ID] = s
	}
	c.mu.Unlock()
	return s
}

// newestFirst returns a copy of posts sorted by creation time, newest first.
func newestFirst(posts []store.Post) []store.Post {
	out := make([]store.Post, len(posts))
	copy(out, posts)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func normalizeTag(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}
