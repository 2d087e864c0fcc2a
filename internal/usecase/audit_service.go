package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/user/linkfinder-service/internal/entity"
	"github.com/user/linkfinder-service/internal/repository"
)

const (
	// Results are flushed to the run repository in batches of this size.
	resultBatchSize = 50
	// Pending results and progress are also flushed at this interval.
	progressFlushInterval = 500 * time.Millisecond
)

// AuditService starts audits against the content store and keeps their
// snapshots and results in a run repository so clients can poll them.
type AuditService struct {
	audit  *AuditUseCase
	docs   repository.DocumentRepository
	runs   repository.AuditRunRepository
	logger *zap.Logger
	active activeRuns
	wg     sync.WaitGroup

	flushInterval time.Duration
}

// NewAuditService wires the orchestrator to its stores.
func NewAuditService(audit *AuditUseCase, docs repository.DocumentRepository, runs repository.AuditRunRepository, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{
		audit:         audit,
		docs:          docs,
		runs:          runs,
		logger:        logger,
		flushInterval: progressFlushInterval,
	}
}

// StartRun reads the corpus and begins a new audit. The run outlives ctx.
func (s *AuditService) StartRun(ctx context.Context, opts AuditOptions) (*entity.AuditRun, error) {
	docs, err := s.docs.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	snapshot := &entity.AuditRun{
		ID:              uuid.NewString(),
		Status:          entity.RunRunning,
		FollowRedirects: opts.FollowRedirects,
		StartedAt:       time.Now().UTC(),
	}
	run := s.audit.Start(context.WithoutCancel(ctx), docs, opts)
	snapshot.Progress = run.Progress()
	if err := s.runs.SaveRun(ctx, snapshot); err != nil {
		run.Cancel()
		return nil, fmt.Errorf("save run %s: %w", snapshot.ID, err)
	}

	started := *snapshot
	s.active.put(snapshot.ID, run)
	s.wg.Add(1)
	go s.persist(snapshot, run)
	return &started, nil
}

func (s *AuditService) persist(snapshot *entity.AuditRun, run *Run) {
	defer s.wg.Done()
	defer s.active.remove(snapshot.ID)

	ctx := context.Background()
	log := s.logger.With(zap.String("run_id", snapshot.ID))
	batch := make([]entity.LinkResult, 0, resultBatchSize)

	saved := snapshot.Progress
	flush := func(force bool) {
		progress := run.Progress()
		if !force && len(batch) == 0 && progress == saved {
			return
		}
		if len(batch) > 0 {
			if err := s.runs.AppendResults(ctx, snapshot.ID, batch...); err != nil {
				log.Error("failed to append results", zap.Int("count", len(batch)), zap.Error(err))
			}
			batch = batch[:0]
		}
		snapshot.Progress = progress
		if err := s.runs.SaveRun(ctx, snapshot); err != nil {
			log.Error("failed to save run snapshot", zap.Error(err))
			return
		}
		saved = progress
	}

	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	results := run.Results()
	for results != nil {
		select {
		case res, ok := <-results:
			if !ok {
				results = nil
				continue
			}
			batch = append(batch, res)
			if len(batch) == resultBatchSize {
				flush(false)
			}
		case <-ticker.C:
			flush(false)
		}
	}

	run.Wait()
	now := time.Now().UTC()
	snapshot.Status = run.Status()
	snapshot.FinishedAt = &now
	flush(true)
	log.Info("run persisted", zap.String("status", string(snapshot.Status)), zap.Int("processed", snapshot.Progress.Processed))
}

// GetRun returns the run snapshot and a page of its results.
func (s *AuditService) GetRun(ctx context.Context, id string, offset, limit int64) (*entity.AuditRun, []entity.LinkResult, error) {
	snapshot, err := s.runs.GetRun(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	results, err := s.runs.ListResults(ctx, id, offset, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("list results of run %s: %w", id, err)
	}
	return snapshot, results, nil
}

// CancelRun stops a running audit. Cancelling a finished run is a no-op.
func (s *AuditService) CancelRun(ctx context.Context, id string) error {
	if run, ok := s.active.get(id); ok {
		run.Cancel()
		return nil
	}
	if _, err := s.runs.GetRun(ctx, id); err != nil {
		if errors.Is(err, repository.ErrRunNotFound) {
			return err
		}
		return fmt.Errorf("get run %s: %w", id, err)
	}
	return nil
}

// Reprobe checks one URL outside of any run.
func (s *AuditService) Reprobe(ctx context.Context, url string, follow bool) (entity.ProbeResult, error) {
	return s.audit.Reprobe(ctx, url, follow)
}

// Shutdown cancels active runs and waits for their final snapshots to be written.
func (s *AuditService) Shutdown(ctx context.Context) error {
	for _, run := range s.active.all() {
		run.Cancel()
	}
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// activeRuns tracks cancel handles of runs started through the service.
type activeRuns struct {
	mu   sync.Mutex
	runs map[string]*Run
}

func (a *activeRuns) put(id string, r *Run) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.runs == nil {
		a.runs = make(map[string]*Run)
	}
	a.runs[id] = r
}

func (a *activeRuns) get(id string) (*Run, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	r, ok := a.runs[id]
	return r, ok
}

func (a *activeRuns) remove(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.runs, id)
}

func (a *activeRuns) all() []*Run {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*Run, 0, len(a.runs))
	for _, r := range a.runs {
		out = append(out, r)
	}
	return out
}
