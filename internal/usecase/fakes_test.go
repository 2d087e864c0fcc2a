package usecase

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/user/linkfinder-service/internal/entity"
	"github.com/user/linkfinder-service/internal/repository"
)

type memoryDocs struct {
	mu      sync.Mutex
	docs    map[string]*entity.Document
	failFor map[string]error
	listErr error
}

func newMemoryDocs(docs ...*entity.Document) *memoryDocs {
	m := &memoryDocs{docs: make(map[string]*entity.Document), failFor: make(map[string]error)}
	for _, d := range docs {
		m.docs[d.ID] = d
	}
	return m
}

func (m *memoryDocs) ListDocuments(context.Context) ([]*entity.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]*entity.Document, 0, len(m.docs))
	for _, d := range m.docs {
		cp := *d
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryDocs) ReplaceInContent(_ context.Context, id, old, new string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failFor[id]; err != nil {
		return false, err
	}
	d, ok := m.docs[id]
	if !ok {
		return false, repository.ErrDocumentNotFound
	}
	if !strings.Contains(d.Content, old) {
		return false, nil
	}
	d.Content = strings.ReplaceAll(d.Content, old, new)
	return true, nil
}

func (m *memoryDocs) content(id string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.docs[id].Content
}

// fakeProber answers from a table keyed by URL and records concurrency.
type fakeProber struct {
	mu       sync.Mutex
	statuses map[string]int
	calls    []string
	delay    time.Duration
	block    chan struct{}
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (p *fakeProber) Probe(ctx context.Context, url string, follow bool) entity.ProbeResult {
	n := p.inFlight.Add(1)
	defer p.inFlight.Add(-1)
	for {
		old := p.maxSeen.Load()
		if n <= old || p.maxSeen.CompareAndSwap(old, n) {
			break
		}
	}

	p.mu.Lock()
	p.calls = append(p.calls, url)
	status, ok := p.statuses[url]
	p.mu.Unlock()

	if p.block != nil {
		select {
		case <-p.block:
		case <-ctx.Done():
			return entity.ProbeResult{ErrorLabel: "cancelled"}
		}
	}
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return entity.ProbeResult{ErrorLabel: "cancelled"}
		}
	}
	if !ok {
		status = 200
	}
	if status == 0 {
		return entity.ProbeResult{ErrorLabel: "connection refused"}
	}
	return entity.ProbeResult{StatusCode: status}
}

func (p *fakeProber) called() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

type memoryRuns struct {
	mu      sync.Mutex
	runs    map[string]entity.AuditRun
	results map[string][]entity.LinkResult
}

func newMemoryRuns() *memoryRuns {
	return &memoryRuns{runs: make(map[string]entity.AuditRun), results: make(map[string][]entity.LinkResult)}
}

func (m *memoryRuns) SaveRun(_ context.Context, run *entity.AuditRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.ID] = *run
	return nil
}

func (m *memoryRuns) GetRun(_ context.Context, id string) (*entity.AuditRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, repository.ErrRunNotFound
	}
	return &run, nil
}

func (m *memoryRuns) AppendResults(_ context.Context, id string, results ...entity.LinkResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[id]; !ok {
		return errors.New("append to unknown run")
	}
	m.results[id] = append(m.results[id], results...)
	return nil
}

func (m *memoryRuns) ListResults(_ context.Context, id string, offset, limit int64) ([]entity.LinkResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.results[id]
	if offset >= int64(len(all)) {
		return nil, nil
	}
	end := int64(len(all))
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return append([]entity.LinkResult(nil), all[offset:end]...), nil
}

type proberFunc func(ctx context.Context, url string, follow bool) entity.ProbeResult

func (f proberFunc) Probe(ctx context.Context, url string, follow bool) entity.ProbeResult {
	return f(ctx, url, follow)
}
