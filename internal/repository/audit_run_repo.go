package repository

import (
	"context"

	"github.com/user/linkfinder-service/internal/entity"
)

// AuditRunRepository keeps short-lived run snapshots and results for polling clients.
type AuditRunRepository interface {
	// SaveRun creates or overwrites the run snapshot.
	SaveRun(ctx context.Context, run *entity.AuditRun) error
	// GetRun returns ErrRunNotFound when the run is unknown or expired.
	GetRun(ctx context.Context, id string) (*entity.AuditRun, error)
	// AppendResults adds classified results to the end of the run's result list.
	AppendResults(ctx context.Context, id string, results ...entity.LinkResult) error
	// ListResults returns up to limit results starting at offset, in completion order.
	ListResults(ctx context.Context, id string, offset, limit int64) ([]entity.LinkResult, error)
}
