package folio

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/folio/markdown"
	"github.com/eringen/folio/store"
)

func newCacheFixture(t *testing.T, ttl time.Duration) (*PostCache, *store.FileStore) {
	t.Helper()
	s, err := store.NewFileStore(t.TempDir(), markdown.Render)
	require.NoError(t, err)
	return NewPostCache(s, ttl, nil), s
}

func TestCacheServesPublishedOnly(t *testing.T) {
	c, s := newCacheFixture(t, time.Minute)
	ctx := context.Background()
	_, err := s.CreatePost(ctx, store.NewPost{Title: "Live", Content: "x", Tags: []string{"Go", "web"}, Published: true})
	require.NoError(t, err)
	_, err = s.CreatePost(ctx, store.NewPost{Title: "Draft", Content: "x", Tags: []string{"secret"}})
	require.NoError(t, err)

	posts, err := c.ListPosts(ctx, "")
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "Live", posts[0].Title)

	tags, err := c.ListTags(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Go", "web"}, tags)

	_, err = c.GetPost(ctx, "draft")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCacheTagsDedupedCaseInsensitive(t *testing.T) {
	c, s := newCacheFixture(t, time.Minute)
	ctx := context.Background()
	for _, tags := range [][]string{{"Go", "zig"}, {"go", "Apis"}} {
		_, err := s.CreatePost(ctx, store.NewPost{Title: "P", Content: "x", Tags: tags, Published: true})
		require.NoError(t, err)
	}

	tags, err := c.ListTags(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Apis", "Go", "zig"}, tags)

	posts, err := c.ListPosts(ctx, " GO ")
	require.NoError(t, err)
	assert.Len(t, posts, 2)
}

func TestCacheGetPostRendersMarkdown(t *testing.T) {
	c, s := newCacheFixture(t, time.Minute)
	ctx := context.Background()
	_, err := s.CreatePost(ctx, store.NewPost{Title: "Rendered", Content: "Plain **strong** words.", Published: true})
	require.NoError(t, err)

	cp, err := c.GetPost(ctx, "rendered")
	require.NoError(t, err)
	assert.Contains(t, cp.Content, "<strong>strong</strong>")
	assert.Equal(t, 1, cp.ReadingTime)
	assert.Equal(t, "Plain strong words.", cp.Summary)
}

func TestCacheUsesGivenRenderer(t *testing.T) {
	s, err := store.NewFileStore(t.TempDir(), markdown.Render)
	require.NoError(t, err)
	upper := func(src string) (string, error) { return "<pre>" + strings.ToUpper(src) + "</pre>", nil }
	c := NewPostCache(s, time.Minute, upper)
	ctx := context.Background()
	_, err = s.CreatePost(ctx, store.NewPost{Title: "Custom", Content: "shout", Published: true})
	require.NoError(t, err)

	cp, err := c.GetPost(ctx, "custom")
	require.NoError(t, err)
	assert.Equal(t, "<pre>SHOUT</pre>", cp.Content)
}

// blockingStore pauses GetPostByID until release is closed.
type blockingStore struct {
	store.PostStore
	entered chan struct{}
	release chan struct{}
}

func (b *blockingStore) GetPostByID(ctx context.Context, id string) (store.Document, error) {
	close(b.entered)
	<-b.release
	return b.PostStore.GetPostByID(ctx, id)
}

func TestCacheDropsDocumentBuiltAcrossInvalidate(t *testing.T) {
	s, err := store.NewFileStore(t.TempDir(), markdown.Render)
	require.NoError(t, err)
	ctx := context.Background()
	p, err := s.CreatePost(ctx, store.NewPost{Title: "Racy", Content: "before", Published: true})
	require.NoError(t, err)

	bs := &blockingStore{PostStore: s, entered: make(chan struct{}), release: make(chan struct{})}
	c := NewPostCache(bs, time.Hour, nil)

	done := make(chan CachedPost)
	go func() {
		cp, err := c.GetPost(ctx, "racy")
		assert.NoError(t, err)
		done <- cp
	}()
	<-bs.entered

	after := "after"
	_, err = s.UpdatePost(ctx, p.ID, store.PostUpdate{Content: &after})
	require.NoError(t, err)
	c.Invalidate()
	_, err = c.ListPosts(ctx, "")
	require.NoError(t, err)
	close(bs.release)
	<-done

	c.mu.RLock()
	_, kept := c.docs["racy"]
	c.mu.RUnlock()
	assert.False(t, kept, "a document built before Invalidate must not be cached")
}

func TestCacheStaysStaleUntilInvalidated(t *testing.T) {
	c, s := newCacheFixture(t, time.Hour)
	ctx := context.Background()
	_, err := s.CreatePost(ctx, store.NewPost{Title: "First", Content: "x", Published: true})
	require.NoError(t, err)

	posts, err := c.ListPosts(ctx, "")
	require.NoError(t, err)
	require.Len(t, posts, 1)

	_, err = s.CreatePost(ctx, store.NewPost{Title: "Second", Content: "x", Published: true})
	require.NoError(t, err)
	posts, err = c.ListPosts(ctx, "")
	require.NoError(t, err)
	assert.Len(t, posts, 1)

	c.Invalidate()
	posts, err = c.ListPosts(ctx, "")
	require.NoError(t, err)
	assert.Len(t, posts, 2)
}

func TestCacheExpiresAfterTTL(t *testing.T) {
	c, s := newCacheFixture(t, 20*time.Millisecond)
	ctx := context.Background()
	_, err := c.ListPosts(ctx, "")
	require.NoError(t, err)

	_, err = s.CreatePost(ctx, store.NewPost{Title: "Late", Content: "x", Published: true})
	require.NoError(t, err)
	time.Sleep(40 * time.Millisecond)

	posts, err := c.ListPosts(ctx, "")
	require.NoError(t, err)
	assert.Len(t, posts, 1)
}

func TestSummaryPrefersExcerpt(t *testing.T) {
	c, s := newCacheFixture(t, time.Minute)
	ctx := context.Background()
	withExcerpt, err := s.CreatePost(ctx, store.NewPost{Title: "A", Content: "body text", Excerpt: "Hand written", Published: true})
	require.NoError(t, err)
	without, err := s.CreatePost(ctx, store.NewPost{Title: "B", Content: "# Heading\n\nGenerated summary", Published: true})
	require.NoError(t, err)

	assert.Equal(t, "Hand written", c.Summary(ctx, withExcerpt))
	assert.Contains(t, c.Summary(ctx, without), "Generated summary")
}

func TestNewestFirst(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	posts := []store.Post{
		{ID: "old", CreatedAt: base},
		{ID: "new", CreatedAt: base.Add(48 * time.Hour)},
		{ID: "mid", CreatedAt: base.Add(24 * time.Hour)},
	}
	sorted := newestFirst(posts)
	assert.Equal(t, "new", sorted[0].ID)
	assert.Equal(t, "mid", sorted[1].ID)
	assert.Equal(t, "old", sorted[2].ID)
	assert.Equal(t, "old", posts[0].ID, "input must not be reordered")
}
