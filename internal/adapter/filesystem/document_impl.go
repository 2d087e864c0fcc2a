// Package filesystem serves a directory of markup files as a content store.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/user/linkfinder-service/internal/entity"
	"github.com/user/linkfinder-service/internal/repository"
)

var extensions = map[string]bool{".html": true, ".htm": true, ".md": true}

// DocumentRepoImpl treats every .html, .htm and .md file under root as a
// published page. Document ids are slash separated paths relative to root.
type DocumentRepoImpl struct {
	root string
	mu   sync.Mutex
}

// NewDocumentRepo creates a store rooted at dir.
func NewDocumentRepo(dir string) (*DocumentRepoImpl, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}
	return &DocumentRepoImpl{root: dir}, nil
}

// ListDocuments reads every supported file. Hidden directories are skipped.
func (r *DocumentRepoImpl) ListDocuments(ctx context.Context) ([]*entity.Document, error) {
	var docs []*entity.Document
	err := filepath.WalkDir(r.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if p != r.root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !extensions[strings.ToLower(filepath.Ext(p))] {
			return nil
		}
		rel, err := filepath.Rel(r.root, p)
		if err != nil {
			return err
		}
		content, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		docs = append(docs, newDocument(filepath.ToSlash(rel), string(content)))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", r.root, err)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

func newDocument(id, content string) *entity.Document {
	base := path.Base(id)
	slug := path.Dir(id)
	if slug == "." {
		slug = ""
	}
	return &entity.Document{
		ID:      id,
		Title:   strings.TrimSuffix(base, path.Ext(base)),
		Slug:    slug,
		Type:    "page",
		Status:  entity.StatusPublish,
		Content: content,
	}
}

// ReplaceInContent rewrites the file through a temporary sibling so readers
// never observe a partially written document.
func (r *DocumentRepoImpl) ReplaceInContent(ctx context.Context, id, old, new string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	p, err := r.path(id)
	if err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	content, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("%w: %q", repository.ErrDocumentNotFound, id)
	}
	if err != nil {
		return false, err
	}
	if !strings.Contains(string(content), old) {
		return false, nil
	}
	updated := strings.ReplaceAll(string(content), old, new)
	if err := writeAtomic(p, []byte(updated)); err != nil {
		return false, err
	}
	return true, nil
}

func (r *DocumentRepoImpl) path(id string) (string, error) {
	local := filepath.FromSlash(id)
	if id == "" || !filepath.IsLocal(local) || !extensions[strings.ToLower(filepath.Ext(local))] {
		return "", fmt.Errorf("%w: %q", repository.ErrDocumentNotFound, id)
	}
	return filepath.Join(r.root, local), nil
}

func writeAtomic(p string, data []byte) error {
	info, err := os.Stat(p)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), "."+filepath.Base(p)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), info.Mode().Perm()); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), p)
}
