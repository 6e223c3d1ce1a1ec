package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/eringen/folio/markdown"
)

// SQLiteStore keeps posts and contact requests in one SQLite database. Each
// post row holds metadata and body together, so every mutation is a single
// statement.
type SQLiteStore struct {
	db     *sql.DB
	render RenderFunc

	postsMu    sync.Mutex
	contactsMu sync.Mutex
}

// NewSQLiteStore opens (or creates) the database at path, ensures its
// directory exists and applies the schema.
func NewSQLiteStore(path string, render RenderFunc) (*SQLiteStore, error) {
	if render == nil {
		render = markdown.Render
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, &StorageError{Op: "create data dir", Path: filepath.Dir(path), Err: err}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &StorageError{Op: "open database", Path: path, Err: err}
	}
	// WAL lets readers run next to the writer; the busy timeout makes a
	// second process wait instead of failing with SQLITE_BUSY.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		db.Close()
		return nil, &StorageError{Op: "configure database", Path: path, Err: err}
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &SQLiteStore{db: db, render: render}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS posts (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,
    title TEXT NOT NULL,
    slug TEXT NOT NULL,
    excerpt TEXT NOT NULL DEFAULT '',
    tags TEXT NOT NULL DEFAULT '[]',
    published INTEGER NOT NULL DEFAULT 0,
    content TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS posts_slug ON posts(slug);
CREATE TABLE IF NOT EXISTS contacts (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    email TEXT NOT NULL DEFAULT '',
    discord TEXT NOT NULL DEFAULT '',
    message TEXT NOT NULL,
    contact_method TEXT NOT NULL,
    created_at TEXT NOT NULL,
    read INTEGER NOT NULL DEFAULT 0
);
`)
	if err != nil {
		return &StorageError{Op: "apply schema", Err: err}
	}
	return nil
}

const postColumns = `id, title, slug, excerpt, tags, published, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func encodeTags(tags []string) string {
	if tags == nil {
		tags = []string{}
	}
	b, _ := json.Marshal(tags)
	return string(b)
}

func decodeTags(s string) []string {
	var tags []string
	if err := json.Unmarshal([]byte(s), &tags); err != nil || tags == nil {
		return []string{}
	}
	return tags
}

func scanPost(row rowScanner, extra ...any) (Post, error) {
	var p Post
	var tags, created, updated string
	var published int
	dest := append([]any{&p.ID, &p.Title, &p.Slug, &p.Excerpt, &tags, &published, &created, &updated}, extra...)
	if err := row.Scan(dest...); err != nil {
		return Post{}, err
	}
	p.Tags = decodeTags(tags)
	p.Published = published == 1
	p.CreatedAt = parseTime(created)
	p.UpdatedAt = parseTime(updated)
	return p, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// ListPosts returns every post in insertion order.
func (s *SQLiteStore) ListPosts(ctx context.Context) ([]Post, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+postColumns+` FROM posts ORDER BY seq`)
	if err != nil {
		return nil, &StorageError{Op: "list posts", Err: err}
	}
	defer rows.Close()

	posts := []Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, &StorageError{Op: "scan post", Err: err}
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "list posts", Err: err}
	}
	return posts, nil
}

func (s *SQLiteStore) getPost(ctx context.Context, where string, arg string) (Document, error) {
	var d Document
	row := s.db.QueryRowContext(ctx, `SELECT `+postColumns+`, content FROM posts WHERE `+where+` ORDER BY seq LIMIT 1`, arg)
	p, err := scanPost(row, &d.Content)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, &StorageError{Op: "get post", Err: err}
	}
	d.Post = p
	return d, nil
}

// GetPostBySlug returns the earliest post with slug, rendered to HTML.
func (s *SQLiteStore) GetPostBySlug(ctx context.Context, slug string) (Document, error) {
	d, err := s.getPost(ctx, "slug = ?", slug)
	if err != nil {
		return Document{}, err
	}
	html, err := s.render(d.Content)
	if err != nil {
		return Document{}, fmt.Errorf("render post %s: %w", d.ID, err)
	}
	d.Content = html
	return d, nil
}

// GetPostByID returns the post with id and its raw markdown.
func (s *SQLiteStore) GetPostByID(ctx context.Context, id string) (Document, error) {
	return s.getPost(ctx, "id = ?", id)
}

// CreatePost inserts a new post.
func (s *SQLiteStore) CreatePost(ctx context.Context, in NewPost) (Post, error) {
	if err := in.Validate(); err != nil {
		return Post{}, err
	}
	t := now()
	id := uuid.NewString()
	title := strings.TrimSpace(in.Title)
	p := Post{
		ID:        id,
		Title:     title,
		Slug:      slugOrID(title, id),
		Excerpt:   in.Excerpt,
		Tags:      NormalizeTags(in.Tags),
		Published: in.Published,
		CreatedAt: t,
		UpdatedAt: t,
	}
	s.postsMu.Lock()
	defer s.postsMu.Unlock()
	if err := s.upsertPost(ctx, p, in.Content); err != nil {
		return Post{}, err
	}
	return p, nil
}

func (s *SQLiteStore) upsertPost(ctx context.Context, p Post, content string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO posts (id, title, slug, excerpt, tags, published, content, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    title = excluded.title,
    slug = excluded.slug,
    excerpt = excluded.excerpt,
    tags = excluded.tags,
    published = excluded.published,
    content = excluded.content,
    created_at = excluded.created_at,
    updated_at = excluded.updated_at`,
		p.ID, p.Title, p.Slug, p.Excerpt, encodeTags(p.Tags), boolInt(p.Published), content,
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt))
	if err != nil {
		return &StorageError{Op: "save post", Err: err}
	}
	return nil
}

// UpdatePost merges u into the stored post in one UPDATE.
func (s *SQLiteStore) UpdatePost(ctx context.Context, id string, u PostUpdate) (Post, error) {
	s.postsMu.Lock()
	defer s.postsMu.Unlock()

	d, err := s.getPost(ctx, "id = ?", id)
	if err != nil {
		return Post{}, err
	}
	p := d.Post
	body, changed := u.apply(&p, now())
	if !changed {
		body = d.Content
	}
	_, err = s.db.ExecContext(ctx, `
UPDATE posts SET title = ?, slug = ?, excerpt = ?, tags = ?, published = ?, content = ?, updated_at = ?
WHERE id = ?`,
		p.Title, p.Slug, p.Excerpt, encodeTags(p.Tags), boolInt(p.Published), body, formatTime(p.UpdatedAt), id)
	if err != nil {
		return Post{}, &StorageError{Op: "update post", Err: err}
	}
	return p, nil
}

// DeletePost removes a post.
func (s *SQLiteStore) DeletePost(ctx context.Context, id string) error {
	s.postsMu.Lock()
	defer s.postsMu.Unlock()
	res, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return &StorageError{Op: "delete post", Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ImportPost inserts d, or replaces the post with the same id in place.
func (s *SQLiteStore) ImportPost(ctx context.Context, d Document) error {
	p, err := prepareImport(d)
	if err != nil {
		return err
	}
	s.postsMu.Lock()
	defer s.postsMu.Unlock()
	return s.upsertPost(ctx, p, d.Content)
}

const contactColumns = `id, name, email, discord, message, contact_method, created_at, read`

func scanContact(row rowScanner) (ContactRequest, error) {
	var c ContactRequest
	var method, created string
	var read int
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Discord, &c.Message, &method, &created, &read); err != nil {
		return ContactRequest{}, err
	}
	c.ContactMethod = ContactMethod(method)
	c.CreatedAt = parseTime(created)
	c.Read = read == 1
	return c, nil
}

func (s *SQLiteStore) insertContact(ctx context.Context, c ContactRequest) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO contacts (id, name, email, discord, message, contact_method, created_at, read)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    name = excluded.name,
    email = excluded.email,
    discord = excluded.discord,
    message = excluded.message,
    contact_method = excluded.contact_method,
    created_at = excluded.created_at,
    read = excluded.read`,
		c.ID, c.Name, c.Email, c.Discord, c.Message, string(c.ContactMethod), formatTime(c.CreatedAt), boolInt(c.Read))
	if err != nil {
		return &StorageError{Op: "save contact", Err: err}
	}
	return nil
}

// CreateContact validates and stores a contact request.
func (s *SQLiteStore) CreateContact(ctx context.Context, in NewContact) (ContactRequest, error) {
	req, err := in.Validate()
	if err != nil {
		return ContactRequest{}, err
	}
	t := now()
	req.ID = nextContactID(t)
	req.CreatedAt = t
	s.contactsMu.Lock()
	defer s.contactsMu.Unlock()
	if err := s.insertContact(ctx, req); err != nil {
		return ContactRequest{}, err
	}
	return req, nil
}

// ListContacts returns contact requests in insertion order.
func (s *SQLiteStore) ListContacts(ctx context.Context) ([]ContactRequest, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+contactColumns+` FROM contacts ORDER BY seq`)
	if err != nil {
		return nil, &StorageError{Op: "list contacts", Err: err}
	}
	defer rows.Close()

	contacts := []ContactRequest{}
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, &StorageError{Op: "scan contact", Err: err}
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "list contacts", Err: err}
	}
	return contacts, nil
}

// MarkContactRead sets the read flag of a contact request.
func (s *SQLiteStore) MarkContactRead(ctx context.Context, id string) (ContactRequest, error) {
	return s.SetContactRead(ctx, id, true)
}

// SetContactRead sets the read flag to read.
func (s *SQLiteStore) SetContactRead(ctx context.Context, id string, read bool) (ContactRequest, error) {
	s.contactsMu.Lock()
	defer s.contactsMu.Unlock()

	res, err := s.db.ExecContext(ctx, `UPDATE contacts SET read = ? WHERE id = ?`, boolInt(read), id)
	if err != nil {
		return ContactRequest{}, &StorageError{Op: "update contact", Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ContactRequest{}, ErrNotFound
	}
	c, err := scanContact(s.db.QueryRowContext(ctx, `SELECT `+contactColumns+` FROM contacts WHERE id = ?`, id))
	if err != nil {
		return ContactRequest{}, &StorageError{Op: "get contact", Err: err}
	}
	return c, nil
}

// DeleteContact removes a contact request.
func (s *SQLiteStore) DeleteContact(ctx context.Context, id string) error {
	s.contactsMu.Lock()
	defer s.contactsMu.Unlock()
	res, err := s.db.ExecContext(ctx, `DELETE FROM contacts WHERE id = ?`, id)
	if err != nil {
		return &StorageError{Op: "delete contact", Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ImportContact inserts c, or replaces the request with the same id.
func (s *SQLiteStore) ImportContact(ctx context.Context, c ContactRequest) error {
	if strings.TrimSpace(c.ID) == "" {
		return &ValidationError{Field: "id", Message: "ID is required"}
	}
	s.contactsMu.Lock()
	defer s.contactsMu.Unlock()
	return s.insertContact(ctx, c)
}
