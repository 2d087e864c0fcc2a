package repository

import (
	"context"

	"github.com/user/linkfinder-service/internal/entity"
)

// DocumentRepository defines the content store the audit reads and the rewrite engine writes.
type DocumentRepository interface {
	// ListDocuments returns every non-trashed, non-revision document with its content.
	ListDocuments(ctx context.Context) ([]*entity.Document, error)
	// ReplaceInContent replaces every literal occurrence of old with new in the
	// content of document id. matched is false when old does not occur; that is
	// not an error.
	ReplaceInContent(ctx context.Context, id, old, new string) (matched bool, err error)
}
