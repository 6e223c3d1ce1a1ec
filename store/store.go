// Package store persists blog posts and contact requests.
//
// Two backends implement Store: FileStore keeps a JSON index next to one
// markdown file per post, SQLiteStore keeps everything in a single database.
package store

import (
	"context"
	"fmt"
)

// PostStore manages blog posts.
type PostStore interface {
	// ListPosts returns every post in storage order, without bodies.
	ListPosts(ctx context.Context) ([]Post, error)
	// GetPostBySlug returns the first post with slug, body rendered to HTML.
	GetPostBySlug(ctx context.Context, slug string) (Document, error)
	// GetPostByID returns the post with id, body as raw markdown.
	GetPostByID(ctx context.Context, id string) (Document, error)
	CreatePost(ctx context.Context, p NewPost) (Post, error)
	UpdatePost(ctx context.Context, id string, u PostUpdate) (Post, error)
	DeletePost(ctx context.Context, id string) error
}

// ContactStore manages contact requests.
type ContactStore interface {
	CreateContact(ctx context.Context, c NewContact) (ContactRequest, error)
	// ListContacts returns contact requests in insertion order.
	ListContacts(ctx context.Context) ([]ContactRequest, error)
	MarkContactRead(ctx context.Context, id string) (ContactRequest, error)
	SetContactRead(ctx context.Context, id string, read bool) (ContactRequest, error)
	DeleteContact(ctx context.Context, id string) error
}

// Importer stores records as-is, keeping their ids and timestamps.
type Importer interface {
	ImportPost(ctx context.Context, d Document) error
	ImportContact(ctx context.Context, c ContactRequest) error
}

// Store is the full persistence surface used by the application.
type Store interface {
	PostStore
	ContactStore
	Importer
	Close() error
}

// RenderFunc converts a markdown body to HTML.
type RenderFunc func(src string) (string, error)

// Driver names accepted by Open.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// Open returns the backend named by driver. dataDir is used by the file
// backend, dbPath by the SQLite backend.
func Open(driver, dataDir, dbPath string, render RenderFunc) (Store, error) {
	switch driver {
	case "", DriverFile:
		return NewFileStore(dataDir, render)
	case DriverSQLite:
		return NewSQLiteStore(dbPath, render)
	default:
		return nil, fmt.Errorf("store: unknown driver %q", driver)
	}
}
