package usecase

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/user/linkfinder-service/internal/classifier"
	"github.com/user/linkfinder-service/internal/entity"
	"github.com/user/linkfinder-service/internal/extractor"
	"github.com/user/linkfinder-service/internal/repository"
	"github.com/user/linkfinder-service/pkg/metrics"
)

const DefaultMaxConcurrency = 10

// AuditConfig bounds the fan-out of one audit run.
type AuditConfig struct {
	MaxConcurrency int     // Simultaneous probes, DefaultMaxConcurrency when zero
	RatePerSecond  float64 // Probe starts per second, unlimited when zero
}

// AuditOptions are chosen per run.
type AuditOptions struct {
	FollowRedirects bool
}

// AuditUseCase validates every reference of a corpus.
type AuditUseCase struct {
	classifier *classifier.Classifier
	prober     repository.Prober
	cfg        AuditConfig
	logger     *zap.Logger
	tracer     trace.Tracer
}

// NewAuditUseCase creates the validation orchestrator.
func NewAuditUseCase(cl *classifier.Classifier, prober repository.Prober, cfg AuditConfig, logger *zap.Logger) *AuditUseCase {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = DefaultMaxConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditUseCase{
		classifier: cl,
		prober:     prober,
		cfg:        cfg,
		logger:     logger,
		tracer:     otel.Tracer("github.com/user/linkfinder-service/internal/usecase"),
	}
}

type task struct {
	doc *entity.Document
	occ entity.Occurrence
}

// Run is one audit in progress. Results arrive in completion order and the
// channel is closed when the run completes or is cancelled.
type Run struct {
	results chan entity.LinkResult
	tracker *Tracker
	cancel  context.CancelFunc
	done    chan struct{}
	status  entity.RunStatus
}

// Results streams classified references.
func (r *Run) Results() <-chan entity.LinkResult { return r.results }

// Progress returns a snapshot of the run's counters.
func (r *Run) Progress() entity.Progress { return r.tracker.Snapshot() }

// Cancel stops the run. References already delivered stay valid.
func (r *Run) Cancel() { r.cancel() }

// Done is closed once every worker has returned.
func (r *Run) Done() <-chan struct{} { return r.done }

// Wait blocks until the run has finished and returns the final counters.
func (r *Run) Wait() entity.Progress {
	<-r.done
	return r.tracker.Snapshot()
}

// Status reports running until Done is closed, then completed or cancelled.
func (r *Run) Status() entity.RunStatus {
	select {
	case <-r.done:
		return r.status
	default:
		return entity.RunRunning
	}
}

// Start extracts every reference of docs, fixes the run total and fans the
// probes out in the background. Cancelling ctx cancels the run.
func (uc *AuditUseCase) Start(ctx context.Context, docs []*entity.Document, opts AuditOptions) *Run {
	var tasks []task
	for _, doc := range docs {
		for occ := range extractor.All(doc.Content) {
			tasks = append(tasks, task{doc: doc, occ: occ})
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	run := &Run{
		// Sized to the total so workers never block on a slow consumer.
		results: make(chan entity.LinkResult, len(tasks)),
		tracker: NewTracker(len(tasks)),
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	uc.logger.Info("audit started",
		zap.Int("documents", len(docs)),
		zap.Int("references", len(tasks)),
		zap.Bool("follow_redirects", opts.FollowRedirects),
	)
	go uc.execute(runCtx, run, tasks, opts)
	return run
}

func (uc *AuditUseCase) execute(ctx context.Context, run *Run, tasks []task, opts AuditOptions) {
	ctx, span := uc.tracer.Start(ctx, "audit.run", trace.WithAttributes(
		attribute.Int("linkfinder.references", len(tasks)),
		attribute.Bool("linkfinder.follow_redirects", opts.FollowRedirects),
	))
	start := time.Now()

	var limiter *rate.Limiter
	if uc.cfg.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(uc.cfg.RatePerSecond), 1)
	}

	var g errgroup.Group
	g.SetLimit(uc.cfg.MaxConcurrency)

	for _, t := range tasks {
		if ctx.Err() != nil {
			break
		}
		target := uc.classifier.Resolve(t.occ.Value, t.doc)
		if !target.Probeable() {
			uc.deliver(run, t, target, entity.ProbeResult{})
			continue
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				break
			}
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			metrics.ProbesInFlight.Inc()
			probe := uc.prober.Probe(ctx, target.URL, opts.FollowRedirects)
			metrics.ProbesInFlight.Dec()
			// A probe interrupted by cancellation says nothing about the reference.
			if ctx.Err() != nil {
				return nil
			}
			uc.deliver(run, t, target, probe)
			return nil
		})
	}
	_ = g.Wait()

	final := run.tracker.Snapshot()
	run.status = entity.RunCompleted
	if final.Processed < final.Total {
		run.status = entity.RunCancelled
	}
	metrics.AuditRunsTotal.WithLabelValues(string(run.status)).Inc()
	span.SetAttributes(
		attribute.String("linkfinder.status", string(run.status)),
		attribute.Int("linkfinder.errors", final.Errors),
		attribute.Int("linkfinder.warnings", final.Warnings),
	)
	span.End()

	uc.logger.Info("audit finished",
		zap.String("status", string(run.status)),
		zap.Int("processed", final.Processed),
		zap.Int("total", final.Total),
		zap.Int("errors", final.Errors),
		zap.Int("warnings", final.Warnings),
		zap.Duration("elapsed", time.Since(start)),
	)

	close(run.results)
	run.cancel()
	close(run.done)
}

func (uc *AuditUseCase) deliver(run *Run, t task, target classifier.Target, probe entity.ProbeResult) {
	bucket := entity.BucketOther
	if target.Probeable() {
		bucket = uc.classifier.Bucket(probe, target.Internal, t.doc)
	}
	res := entity.LinkResult{
		DocumentID:     t.doc.ID,
		DocumentTitle:  t.doc.Title,
		DocumentType:   t.doc.Type,
		DocumentStatus: t.doc.Status,
		Index:          t.occ.Index,
		Tag:            t.occ.Tag,
		Attribute:      t.occ.Attribute,
		Value:          t.occ.Value,
		Element:        t.occ.Element(),
		Target:         target.URL,
		Internal:       target.Internal,
		Skipped:        target.Skip,
		Probe:          probe,
		Bucket:         bucket,
	}
	metrics.ReferencesClassifiedTotal.WithLabelValues(string(bucket), string(target.Skip)).Inc()
	if bucket == entity.BucketError {
		uc.logger.Debug("broken reference",
			zap.String("document_id", res.DocumentID),
			zap.String("target", res.Target),
			zap.Int("status", probe.StatusCode),
			zap.String("error_label", probe.ErrorLabel),
		)
	}

	run.tracker.Record(bucket)
	run.results <- res
}

// Reprobe checks a single URL on demand, typically to resolve a redirect to
// its final destination before rewriting the reference.
func (uc *AuditUseCase) Reprobe(ctx context.Context, url string, follow bool) (entity.ProbeResult, error) {
	res := uc.prober.Probe(ctx, url, follow)
	if res.TransportFailed() {
		return res, fmt.Errorf("probe %s: %w (%s)", url, repository.ErrTransportFailure, res.ErrorLabel)
	}
	return res, nil
}

// FinalURL follows redirects from url and returns where they end.
func (uc *AuditUseCase) FinalURL(ctx context.Context, url string) (string, error) {
	res, err := uc.Reprobe(ctx, url, true)
	if err != nil {
		return "", err
	}
	if res.EffectiveURL == "" {
		return url, nil
	}
	return res.EffectiveURL, nil
}
