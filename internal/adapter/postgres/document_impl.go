package postgres

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/linkfinder-service/internal/entity"
	"github.com/user/linkfinder-service/internal/repository"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id      BIGSERIAL PRIMARY KEY,
	title   TEXT NOT NULL DEFAULT '',
	slug    TEXT NOT NULL DEFAULT '',
	type    TEXT NOT NULL DEFAULT 'post',
	status  TEXT NOT NULL DEFAULT 'draft',
	content TEXT NOT NULL DEFAULT ''
);`

// DocumentRepoImpl implements repository.DocumentRepository on a `documents` table.
type DocumentRepoImpl struct {
	db *pgxpool.Pool
}

// NewDocumentRepo creates a new instance of DocumentRepoImpl.
func NewDocumentRepo(db *pgxpool.Pool) *DocumentRepoImpl {
	return &DocumentRepoImpl{db: db}
}

// Migrate creates the documents table when it does not exist.
func (r *DocumentRepoImpl) Migrate(ctx context.Context) error {
	_, err := r.db.Exec(ctx, schema)
	return err
}

// ListDocuments returns every document that is not trashed, private or a revision.
func (r *DocumentRepoImpl) ListDocuments(ctx context.Context) ([]*entity.Document, error) {
	query := `
		SELECT id::text AS id, title, slug, type, status, content
		FROM documents
		WHERE status <> ALL($1) AND type <> $2
		ORDER BY id;
	`
	rows, err := r.db.Query(ctx, query, []string{entity.StatusTrash, entity.StatusPrivate}, entity.TypeRevision)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[entity.Document])
}

// ReplaceInContent performs a literal replace-all inside one document. The
// row is only touched when old occurs in its content.
func (r *DocumentRepoImpl) ReplaceInContent(ctx context.Context, id, old, new string) (bool, error) {
	pk, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return false, fmt.Errorf("%w: %q", repository.ErrDocumentNotFound, id)
	}
	query := `
		UPDATE documents
		SET content = replace(content, $1, $2)
		WHERE id = $3 AND strpos(content, $1) > 0;
	`
	tag, err := r.db.Exec(ctx, query, old, new, pk)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
