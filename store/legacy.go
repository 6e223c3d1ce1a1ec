package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ImportResult counts the records copied by ImportDir.
type ImportResult struct {
	Posts    int
	Contacts int
	Skipped  []string
}

// ImportDir copies a data directory in the legacy layout (posts.json,
// blog/<id>.md with YAML front matter, contacts.json) into dst. Metadata
// from the index wins; front matter only fills fields the index lacks.
// Content files without an index record are imported from their front
// matter alone, using the file name as id.
func ImportDir(ctx context.Context, srcDir string, dst Importer) (ImportResult, error) {
	var res ImportResult

	var posts []Post
	data, err := os.ReadFile(filepath.Join(srcDir, postsIndexFile))
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return res, &StorageError{Op: "read index", Path: filepath.Join(srcDir, postsIndexFile), Err: err}
	default:
		if err := json.Unmarshal(data, &posts); err != nil {
			return res, &StorageError{Op: "decode index", Path: filepath.Join(srcDir, postsIndexFile), Err: err}
		}
	}

	seen := make(map[string]struct{}, len(posts))
	for _, p := range posts {
		seen[p.ID] = struct{}{}
		doc, err := readLegacyPost(srcDir, p)
		if err != nil {
			res.Skipped = append(res.Skipped, fmt.Sprintf("%s: %v", p.ID, err))
			continue
		}
		if err := dst.ImportPost(ctx, doc); err != nil {
			return res, fmt.Errorf("import post %s: %w", p.ID, err)
		}
		res.Posts++
	}

	entries, err := os.ReadDir(filepath.Join(srcDir, blogSubdir))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return res, &StorageError{Op: "list content", Path: filepath.Join(srcDir, blogSubdir), Err: err}
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != artifactExt {
			continue
		}
		id := strings.TrimSuffix(e.Name(), artifactExt)
		if _, ok := seen[id]; ok {
			continue
		}
		doc, err := readLegacyPost(srcDir, Post{ID: id})
		if err != nil {
			res.Skipped = append(res.Skipped, fmt.Sprintf("%s: %v", id, err))
			continue
		}
		if err := dst.ImportPost(ctx, doc); err != nil {
			return res, fmt.Errorf("import post %s: %w", id, err)
		}
		res.Posts++
	}

	data, err = os.ReadFile(filepath.Join(srcDir, contactsFile))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return res, nil
	case err != nil:
		return res, &StorageError{Op: "read contacts", Path: filepath.Join(srcDir, contactsFile), Err: err}
	}
	var contacts []ContactRequest
	if err := json.Unmarshal(data, &contacts); err != nil {
		return res, &StorageError{Op: "decode contacts", Path: filepath.Join(srcDir, contactsFile), Err: err}
	}
	for _, c := range contacts {
		if err := dst.ImportContact(ctx, c); err != nil {
			return res, fmt.Errorf("import contact %s: %w", c.ID, err)
		}
		res.Contacts++
	}
	return res, nil
}

func readLegacyPost(srcDir string, p Post) (Document, error) {
	raw, err := os.ReadFile(filepath.Join(srcDir, blogSubdir, p.ID+artifactExt))
	if err != nil {
		return Document{}, err
	}
	meta, body, err := splitFrontMatter(raw)
	if err != nil {
		return Document{}, err
	}
	if p.Title == "" {
		p.Title = meta.Title
	}
	if p.Excerpt == "" {
		p.Excerpt = meta.Excerpt
	}
	if p.Tags == nil {
		p.Tags = meta.Tags
	}
	if p.CreatedAt.IsZero() && meta.Published != nil {
		p.Published = *meta.Published
	}
	if p.CreatedAt.IsZero() && meta.Date != "" {
		if t, err := time.Parse(time.RFC3339, meta.Date); err == nil {
			p.CreatedAt = t.UTC()
		} else if t, err := time.Parse("2006-01-02", meta.Date); err == nil {
			p.CreatedAt = t.UTC()
		}
	}
	return Document{Post: p, Content: strings.TrimPrefix(body, "\n")}, nil
}
