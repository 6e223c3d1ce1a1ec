package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/eringen/folio/logger"
	"github.com/eringen/folio/markdown"
)

const (
	postsIndexFile = "posts.json"
	contactsFile   = "contacts.json"
	blogSubdir     = "blog"
	artifactExt    = ".md"
)

// FileStore keeps post metadata in posts.json, each post body in
// blog/<id>.md and contact requests in contacts.json, all under one data
// directory. Every file is replaced atomically. Each collection has its own
// lock, so concurrent requests in one process never lose writes; several
// processes sharing a data directory are not supported.
type FileStore struct {
	dir    string
	render RenderFunc

	postsMu    sync.RWMutex
	contactsMu sync.RWMutex
}

// NewFileStore opens a file store rooted at dir. A nil render uses
// markdown.Render.
func NewFileStore(dir string, render RenderFunc) (*FileStore, error) {
	if render == nil {
		render = markdown.Render
	}
	s := &FileStore{dir: dir, render: render}
	if err := s.ensureDirs(); err != nil {
		return nil, err
	}
	return s, nil
}

// Dir returns the data directory.
func (s *FileStore) Dir() string { return s.dir }

// Close is a no-op; it exists to satisfy Store.
func (s *FileStore) Close() error { return nil }

func (s *FileStore) ensureDirs() error {
	if err := os.MkdirAll(filepath.Join(s.dir, blogSubdir), 0o755); err != nil {
		return &StorageError{Op: "create data dir", Path: s.dir, Err: err}
	}
	return nil
}

func (s *FileStore) indexPath() string    { return filepath.Join(s.dir, postsIndexFile) }
func (s *FileStore) contactsPath() string { return filepath.Join(s.dir, contactsFile) }

func (s *FileStore) artifactPath(id string) (string, error) {
	if id == "" || id != filepath.Base(id) || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", &StorageError{Op: "resolve artifact", Err: fmt.Errorf("invalid post id %q", id)}
	}
	return filepath.Join(s.dir, blogSubdir, id+artifactExt), nil
}

// readIndex loads posts.json. A missing index is an empty collection; a
// malformed one is a StorageError.
func (s *FileStore) readIndex() ([]Post, error) {
	data, err := os.ReadFile(s.indexPath())
	if errors.Is(err, fs.ErrNotExist) {
		return []Post{}, nil
	}
	if err != nil {
		return nil, &StorageError{Op: "read index", Path: s.indexPath(), Err: err}
	}
	var posts []Post
	if len(strings.TrimSpace(string(data))) > 0 {
		if err := json.Unmarshal(data, &posts); err != nil {
			return nil, &StorageError{Op: "decode index", Path: s.indexPath(), Err: err}
		}
	}
	for i := range posts {
		if posts[i].Tags == nil {
			posts[i].Tags = []string{}
		}
	}
	if posts == nil {
		posts = []Post{}
	}
	return posts, nil
}

// readIndexFailOpen is readIndex for read paths: a broken index is logged
// and served as empty.
func (s *FileStore) readIndexFailOpen() []Post {
	posts, err := s.readIndex()
	if err != nil {
		logger.ErrorWithFields("post index unreadable, serving empty list", logger.Fields{
			"path":  s.indexPath(),
			"error": err.Error(),
		})
		return []Post{}
	}
	return posts
}

func (s *FileStore) writeIndex(posts []Post) error {
	data, err := json.MarshalIndent(posts, "", "  ")
	if err != nil {
		return &StorageError{Op: "encode index", Path: s.indexPath(), Err: err}
	}
	if err := writeFileAtomic(s.indexPath(), data, 0o644); err != nil {
		return &StorageError{Op: "write index", Path: s.indexPath(), Err: err}
	}
	return nil
}

func (s *FileStore) readBody(id string) (string, error) {
	path, err := s.artifactPath(id)
	if err != nil {
		return "", err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", &StorageError{Op: "read content", Path: path, Err: err}
	}
	_, body, err := splitFrontMatter(raw)
	if err != nil {
		return "", &StorageError{Op: "parse content", Path: path, Err: err}
	}
	return body, nil
}

func (s *FileStore) writeBody(id, body string) error {
	path, err := s.artifactPath(id)
	if err != nil {
		return err
	}
	if err := s.ensureDirs(); err != nil {
		return err
	}
	if err := writeFileAtomic(path, encodeBody(body), 0o644); err != nil {
		return &StorageError{Op: "write content", Path: path, Err: err}
	}
	return nil
}

func (s *FileStore) removeBody(id string) error {
	path, err := s.artifactPath(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &StorageError{Op: "remove content", Path: path, Err: err}
	}
	return nil
}

func findPost(posts []Post, match func(Post) bool) int {
	for i, p := range posts {
		if match(p) {
			return i
		}
	}
	return -1
}

// ListPosts returns all post records in index order.
func (s *FileStore) ListPosts(ctx context.Context) ([]Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ensureDirs(); err != nil {
		return nil, err
	}
	s.postsMu.RLock()
	defer s.postsMu.RUnlock()
	return s.readIndexFailOpen(), nil
}

// GetPostBySlug returns the first post whose slug matches, rendered to HTML.
func (s *FileStore) GetPostBySlug(ctx context.Context, slug string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	s.postsMu.RLock()
	defer s.postsMu.RUnlock()

	posts := s.readIndexFailOpen()
	i := findPost(posts, func(p Post) bool { return p.Slug == slug })
	if i < 0 {
		return Document{}, ErrNotFound
	}
	body, err := s.readBody(posts[i].ID)
	if err != nil {
		return Document{}, err
	}
	html, err := s.render(body)
	if err != nil {
		return Document{}, fmt.Errorf("render post %s: %w", posts[i].ID, err)
	}
	return Document{Post: posts[i], Content: html}, nil
}

// GetPostByID returns the post with id and its raw markdown body.
func (s *FileStore) GetPostByID(ctx context.Context, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	s.postsMu.RLock()
	defer s.postsMu.RUnlock()

	posts := s.readIndexFailOpen()
	i := findPost(posts, func(p Post) bool { return p.ID == id })
	if i < 0 {
		return Document{}, ErrNotFound
	}
	body, err := s.readBody(id)
	if err != nil {
		return Document{}, err
	}
	return Document{Post: posts[i], Content: body}, nil
}

// CreatePost writes the body first and the index second. If the index write
// fails the new body file is removed again.
func (s *FileStore) CreatePost(ctx context.Context, in NewPost) (Post, error) {
	if err := in.Validate(); err != nil {
		return Post{}, err
	}
	if err := ctx.Err(); err != nil {
		return Post{}, err
	}
	s.postsMu.Lock()
	defer s.postsMu.Unlock()

	posts, err := s.readIndex()
	if err != nil {
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

	if err := s.writeBody(id, in.Content); err != nil {
		return Post{}, err
	}
	if err := s.writeIndex(append(posts, p)); err != nil {
		s.discardOrphan(id, err)
		return Post{}, err
	}
	return p, nil
}

func (s *FileStore) discardOrphan(id string, cause error) {
	if rmErr := s.removeBody(id); rmErr != nil {
		logger.ErrorWithFields("orphaned post content left behind, run reconcile", logger.Fields{
			"id":    id,
			"cause": cause.Error(),
			"error": rmErr.Error(),
		})
		return
	}
	logger.WarnWithFields("index write failed, removed new post content", logger.Fields{
		"id":    id,
		"cause": cause.Error(),
	})
}

// UpdatePost merges u into the stored post. A new body is written before the
// index; if the index write then fails the previous body is put back.
func (s *FileStore) UpdatePost(ctx context.Context, id string, u PostUpdate) (Post, error) {
	if err := ctx.Err(); err != nil {
		return Post{}, err
	}
	s.postsMu.Lock()
	defer s.postsMu.Unlock()

	posts, err := s.readIndex()
	if err != nil {
		return Post{}, err
	}
	i := findPost(posts, func(p Post) bool { return p.ID == id })
	if i < 0 {
		return Post{}, ErrNotFound
	}

	p := posts[i]
	p.Tags = append([]string(nil), p.Tags...)
	body, changed := u.apply(&p, now())

	var previous string
	var hadPrevious bool
	if changed {
		if old, err := s.readBody(id); err == nil {
			previous, hadPrevious = old, true
		}
		if err := s.writeBody(id, body); err != nil {
			return Post{}, err
		}
	}

	updated := make([]Post, len(posts))
	copy(updated, posts)
	updated[i] = p
	if err := s.writeIndex(updated); err != nil {
		if changed && hadPrevious {
			if rbErr := s.writeBody(id, previous); rbErr != nil {
				logger.ErrorWithFields("could not restore post content after failed update", logger.Fields{
					"id":    id,
					"error": rbErr.Error(),
				})
			}
		}
		return Post{}, err
	}
	return p, nil
}

// DeletePost drops the record from the index and then removes the body.
func (s *FileStore) DeletePost(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.postsMu.Lock()
	defer s.postsMu.Unlock()

	posts, err := s.readIndex()
	if err != nil {
		return err
	}
	i := findPost(posts, func(p Post) bool { return p.ID == id })
	if i < 0 {
		return ErrNotFound
	}
	kept := make([]Post, 0, len(posts)-1)
	kept = append(kept, posts[:i]...)
	kept = append(kept, posts[i+1:]...)
	if err := s.writeIndex(kept); err != nil {
		return err
	}
	if err := s.removeBody(id); err != nil {
		logger.ErrorWithFields("post deleted but content file remains, run reconcile", logger.Fields{
			"id":    id,
			"error": err.Error(),
		})
	}
	return nil
}

// ImportPost inserts d, or replaces the post with the same id, keeping the
// given id and timestamps.
func (s *FileStore) ImportPost(ctx context.Context, d Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := prepareImport(d)
	if err != nil {
		return err
	}
	s.postsMu.Lock()
	defer s.postsMu.Unlock()

	posts, err := s.readIndex()
	if err != nil {
		return err
	}
	if err := s.writeBody(p.ID, d.Content); err != nil {
		return err
	}
	if i := findPost(posts, func(x Post) bool { return x.ID == p.ID }); i >= 0 {
		posts[i] = p
	} else {
		posts = append(posts, p)
	}
	return s.writeIndex(posts)
}

func prepareImport(d Document) (Post, error) {
	p := d.Post
	if strings.TrimSpace(p.ID) == "" {
		return Post{}, &ValidationError{Field: "id", Message: "ID is required"}
	}
	if strings.TrimSpace(p.Title) == "" {
		return Post{}, &ValidationError{Field: "title", Message: "Title is required"}
	}
	if p.Slug == "" {
		p.Slug = slugOrID(p.Title, p.ID)
	}
	p.Tags = NormalizeTags(p.Tags)
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now()
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	return p, nil
}

// ReconcileReport lists disagreements between the index and the content
// directory.
type ReconcileReport struct {
	// Orphans are content files with no index record.
	Orphans []string
	// Missing are index records whose content file does not exist.
	Missing []string
	// Removed are orphans deleted by a fixing run.
	Removed []string
}

// Reconcile compares posts.json with blog/. With fix set, orphaned content
// files are deleted. Missing content is only reported.
func (s *FileStore) Reconcile(ctx context.Context, fix bool) (ReconcileReport, error) {
	var report ReconcileReport
	if err := ctx.Err(); err != nil {
		return report, err
	}
	s.postsMu.Lock()
	defer s.postsMu.Unlock()

	posts, err := s.readIndex()
	if err != nil {
		return report, err
	}
	indexed := make(map[string]struct{}, len(posts))
	for _, p := range posts {
		indexed[p.ID] = struct{}{}
	}

	dir := filepath.Join(s.dir, blogSubdir)
	entries, err := os.ReadDir(dir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return report, &StorageError{Op: "list content", Path: dir, Err: err}
	}
	onDisk := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != artifactExt {
			continue
		}
		id := strings.TrimSuffix(e.Name(), artifactExt)
		onDisk[id] = struct{}{}
		if _, ok := indexed[id]; !ok {
			report.Orphans = append(report.Orphans, id)
		}
	}
	for _, p := range posts {
		if _, ok := onDisk[p.ID]; !ok {
			report.Missing = append(report.Missing, p.ID)
		}
	}
	sort.Strings(report.Orphans)

	if fix {
		for _, id := range report.Orphans {
			if err := s.removeBody(id); err != nil {
				return report, err
			}
			report.Removed = append(report.Removed, id)
			logger.InfoWithFields("removed orphaned post content", logger.Fields{"id": id})
		}
	}
	return report, nil
}

func (s *FileStore) readContacts() ([]ContactRequest, error) {
	data, err := os.ReadFile(s.contactsPath())
	if errors.Is(err, fs.ErrNotExist) {
		return []ContactRequest{}, nil
	}
	if err != nil {
		return nil, &StorageError{Op: "read contacts", Path: s.contactsPath(), Err: err}
	}
	var contacts []ContactRequest
	if len(strings.TrimSpace(string(data))) > 0 {
		if err := json.Unmarshal(data, &contacts); err != nil {
			return nil, &StorageError{Op: "decode contacts", Path: s.contactsPath(), Err: err}
		}
	}
	if contacts == nil {
		contacts = []ContactRequest{}
	}
	return contacts, nil
}

func (s *FileStore) writeContacts(contacts []ContactRequest) error {
	data, err := json.MarshalIndent(contacts, "", "  ")
	if err != nil {
		return &StorageError{Op: "encode contacts", Path: s.contactsPath(), Err: err}
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return &StorageError{Op: "create data dir", Path: s.dir, Err: err}
	}
	if err := writeFileAtomic(s.contactsPath(), data, 0o644); err != nil {
		return &StorageError{Op: "write contacts", Path: s.contactsPath(), Err: err}
	}
	return nil
}

// CreateContact validates and appends a contact request.
func (s *FileStore) CreateContact(ctx context.Context, in NewContact) (ContactRequest, error) {
	req, err := in.Validate()
	if err != nil {
		return ContactRequest{}, err
	}
	if err := ctx.Err(); err != nil {
		return ContactRequest{}, err
	}
	s.contactsMu.Lock()
	defer s.contactsMu.Unlock()

	contacts, err := s.readContacts()
	if err != nil {
		return ContactRequest{}, err
	}
	t := now()
	req.ID = nextContactID(t)
	req.CreatedAt = t
	if err := s.writeContacts(append(contacts, req)); err != nil {
		return ContactRequest{}, err
	}
	return req, nil
}

// ListContacts returns contact requests in submission order. A malformed
// contacts file is logged and served as empty.
func (s *FileStore) ListContacts(ctx context.Context) ([]ContactRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.contactsMu.RLock()
	defer s.contactsMu.RUnlock()

	contacts, err := s.readContacts()
	if err != nil {
		logger.ErrorWithFields("contacts file unreadable, serving empty list", logger.Fields{
			"path":  s.contactsPath(),
			"error": err.Error(),
		})
		return []ContactRequest{}, nil
	}
	return contacts, nil
}

// MarkContactRead sets the read flag of a contact request.
func (s *FileStore) MarkContactRead(ctx context.Context, id string) (ContactRequest, error) {
	return s.SetContactRead(ctx, id, true)
}

// SetContactRead sets the read flag to read. An unknown id leaves the file
// untouched.
func (s *FileStore) SetContactRead(ctx context.Context, id string, read bool) (ContactRequest, error) {
	if err := ctx.Err(); err != nil {
		return ContactRequest{}, err
	}
	s.contactsMu.Lock()
	defer s.contactsMu.Unlock()

	contacts, err := s.readContacts()
	if err != nil {
		return ContactRequest{}, err
	}
	for i := range contacts {
		if contacts[i].ID != id {
			continue
		}
		if contacts[i].Read == read {
			return contacts[i], nil
		}
		contacts[i].Read = read
		if err := s.writeContacts(contacts); err != nil {
			return ContactRequest{}, err
		}
		return contacts[i], nil
	}
	return ContactRequest{}, ErrNotFound
}

// DeleteContact removes a contact request.
func (s *FileStore) DeleteContact(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.contactsMu.Lock()
	defer s.contactsMu.Unlock()

	contacts, err := s.readContacts()
	if err != nil {
		return err
	}
	kept := make([]ContactRequest, 0, len(contacts))
	for _, c := range contacts {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	if len(kept) == len(contacts) {
		return ErrNotFound
	}
	return s.writeContacts(kept)
}

// ImportContact inserts c, or replaces the request with the same id.
func (s *FileStore) ImportContact(ctx context.Context, c ContactRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(c.ID) == "" {
		return &ValidationError{Field: "id", Message: "ID is required"}
	}
	s.contactsMu.Lock()
	defer s.contactsMu.Unlock()

	contacts, err := s.readContacts()
	if err != nil {
		return err
	}
	replaced := false
	for i := range contacts {
		if contacts[i].ID == c.ID {
			contacts[i] = c
			replaced = true
			break
		}
	}
	if !replaced {
		contacts = append(contacts, c)
	}
	return s.writeContacts(contacts)
}
