package memory

import (
	"context"
	"sort"
	"sync"

	"geosafe/internal/domain/entities"
	"geosafe/internal/repository"
)

// SubscriberDirectory stores alert subscriptions in memory with a secondary
// geohash index for range scans. It maintains two data structures:
//   - subs: subscriberID → subscription (primary lookup)
//   - index: (geohash, subscriberID) pairs kept sorted (spatial lookup)
//
// Both must be kept in sync on every write. Subscriptions without a home
// location are stored but never indexed.
type SubscriberDirectory struct {
	mu    sync.RWMutex
	subs  map[string]*entities.AlertSubscription
	index []indexEntry
}

type indexEntry struct {
	geohash      string
	subscriberID string
}

func (e indexEntry) less(o indexEntry) bool {
	if e.geohash != o.geohash {
		return e.geohash < o.geohash
	}
	return e.subscriberID < o.subscriberID
}

func NewSubscriberDirectory() *SubscriberDirectory {
	return &SubscriberDirectory{
		subs: make(map[string]*entities.AlertSubscription),
	}
}

// Upsert stores a copy of sub. If the geohash changed the old index entry is
// removed first so no stale key is left behind.
func (d *SubscriberDirectory) Upsert(ctx context.Context, sub *entities.AlertSubscription) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if old, exists := d.subs[sub.SubscriberID]; exists && old.Geohash != "" {
		d.removeIndex(indexEntry{geohash: old.Geohash, subscriberID: old.SubscriberID})
	}
	d.subs[sub.SubscriberID] = sub.Clone()
	if sub.Geohash != "" {
		d.insertIndex(indexEntry{geohash: sub.Geohash, subscriberID: sub.SubscriberID})
	}
	return nil
}

func (d *SubscriberDirectory) Get(ctx context.Context, subscriberID string) (*entities.AlertSubscription, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	sub, exists := d.subs[subscriberID]
	if !exists {
		return nil, repository.ErrNotFound
	}
	return sub.Clone(), nil
}

// ScanRange binary-searches the sorted index for low and walks forward until
// the key passes high.
func (d *SubscriberDirectory) ScanRange(ctx context.Context, low, high string) ([]*entities.AlertSubscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	start := sort.Search(len(d.index), func(i int) bool {
		return d.index[i].geohash >= low
	})

	var out []*entities.AlertSubscription
	for i := start; i < len(d.index) && d.index[i].geohash <= high; i++ {
		out = append(out, d.subs[d.index[i].subscriberID].Clone())
	}
	return out, nil
}

func (d *SubscriberDirectory) All(ctx context.Context, pageSize int, fn func([]*entities.AlertSubscription) error) error {
	d.mu.RLock()
	ids := make([]string, 0, len(d.subs))
	for id := range d.subs {
		ids = append(ids, id)
	}
	snapshot := make([]*entities.AlertSubscription, 0, len(ids))
	sort.Strings(ids)
	for _, id := range ids {
		snapshot = append(snapshot, d.subs[id].Clone())
	}
	d.mu.RUnlock()

	if pageSize <= 0 {
		pageSize = len(snapshot)
	}
	for start := 0; start < len(snapshot); start += pageSize {
		end := min(start+pageSize, len(snapshot))
		if err := fn(snapshot[start:end]); err != nil {
			return err
		}
	}
	return nil
}

// Count returns the number of stored subscriptions.
func (d *SubscriberDirectory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subs)
}

func (d *SubscriberDirectory) insertIndex(e indexEntry) {
	i := sort.Search(len(d.index), func(i int) bool { return !d.index[i].less(e) })
	d.index = append(d.index, indexEntry{})
	copy(d.index[i+1:], d.index[i:])
	d.index[i] = e
}

func (d *SubscriberDirectory) removeIndex(e indexEntry) {
	i := sort.Search(len(d.index), func(i int) bool { return !d.index[i].less(e) })
	if i < len(d.index) && d.index[i] == e {
		d.index = append(d.index[:i], d.index[i+1:]...)
	}
}
