package services

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"geosafe/internal/domain/entities"
	"geosafe/pkg/utils"
)

// DefaultTrackerSize bounds how many report statuses a StatusTracker
// remembers.
const DefaultTrackerSize = 4096

// TransitionDetector decides whether a report write is the single moment a
// report became Confirmed.
type TransitionDetector struct {
	now func() time.Time
}

func NewTransitionDetector() *TransitionDetector {
	return &TransitionDetector{now: time.Now}
}

// Detect returns a DispatchEvent only when the write moves the report from
// not-Confirmed (or nonexistent) to Confirmed. Deletions, vote-only updates
// and re-writes of an already Confirmed report never fire.
func (d *TransitionDetector) Detect(w entities.ReportWrite) (entities.DispatchEvent, bool) {
	if w.After == nil || !w.After.IsConfirmed() {
		return entities.DispatchEvent{}, false
	}
	if w.Before.IsConfirmed() {
		return entities.DispatchEvent{}, false
	}

	from := entities.ReportStatus("")
	if w.Before != nil {
		from = w.Before.Status
	}
	occurred := w.OccurredAt
	if occurred.IsZero() {
		occurred = d.now().UTC()
	}
	return entities.DispatchEvent{
		EventID:    utils.GenerateID(),
		ReportID:   w.After.ID,
		From:       from,
		To:         entities.StatusConfirmed,
		OccurredAt: occurred,
		Report:     w.After.Clone(),
	}, true
}

// StatusTracker applies the same transition rule to a change stream, where
// the previous status is not delivered with the change and has to be
// remembered. Statuses are kept in an LRU so a long-running mirror stays
// bounded.
type StatusTracker struct {
	mu   sync.Mutex
	prev *lru.Cache[string, entities.ReportStatus]
}

func NewStatusTracker(size int) *StatusTracker {
	if size <= 0 {
		size = DefaultTrackerSize
	}
	// lru.New only fails for a non-positive size.
	cache, _ := lru.New[string, entities.ReportStatus](size)
	return &StatusTracker{prev: cache}
}

// Reset forgets every remembered status. It runs on each (re)connect before
// the new snapshot is seeded.
func (t *StatusTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prev.Purge()
}

// Seed records the statuses of a snapshot without firing anything. Reports
// that are already Confirmed in a snapshot were alerted, or missed, before
// this observer existed.
func (t *StatusTracker) Seed(reports []*entities.Report) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, r := range reports {
		if r != nil {
			t.prev.Add(r.ID, r.Status)
		}
	}
}

// Observe records the change and reports whether it is a transition into
// Confirmed. A modification of a report whose prior status is unknown is
// recorded but never fires.
func (t *StatusTracker) Observe(change entities.ReportChange) bool {
	r := change.Report
	if r == nil {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	switch change.Kind {
	case entities.ChangeRemoved:
		t.prev.Remove(r.ID)
		return false
	case entities.ChangeAdded:
		prior, known := t.prev.Get(r.ID)
		t.prev.Add(r.ID, r.Status)
		return r.IsConfirmed() && (!known || prior != entities.StatusConfirmed)
	case entities.ChangeModified:
		prior, known := t.prev.Get(r.ID)
		t.prev.Add(r.ID, r.Status)
		return known && prior != entities.StatusConfirmed && r.IsConfirmed()
	}
	return false
}
