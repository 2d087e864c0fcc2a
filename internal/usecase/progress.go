package usecase

import (
	"sync"

	"github.com/user/linkfinder-service/internal/entity"
)

// Tracker holds the counters of one audit run. It is the only state shared
// between probe workers.
type Tracker struct {
	mu sync.Mutex
	p  entity.Progress
}

// NewTracker creates a tracker for a run of total references.
func NewTracker(total int) *Tracker {
	return &Tracker{p: entity.Progress{Total: total}}
}

// Record counts one classified reference.
func (t *Tracker) Record(b entity.Bucket) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.p.Processed++
	switch b {
	case entity.BucketError:
		t.p.Errors++
	case entity.BucketWarning:
		t.p.Warnings++
	default:
		t.p.Other++
	}
}

// Snapshot returns a copy of the current counters.
func (t *Tracker) Snapshot() entity.Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.p
}
