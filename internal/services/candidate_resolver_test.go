package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"geosafe/internal/domain/entities"
	"geosafe/internal/geo"
	"geosafe/internal/repository"
	"geosafe/internal/repository/memory"
)

func penangDirectory(t *testing.T) *memory.SubscriberDirectory {
	t.Helper()
	ctx := context.Background()
	dir := memory.NewSubscriberDirectory()
	require.NoError(t, dir.Upsert(ctx, subscriber("A", penangA, 5)))
	require.NoError(t, dir.Upsert(ctx, subscriber("B", penangB, 5)))
	require.NoError(t, dir.Upsert(ctx, subscriber("KL", kualaLumpur, 50)))
	return dir
}

func candidateIDs(subs []*entities.AlertSubscription) []string {
	ids := make([]string, 0, len(subs))
	for _, s := range subs {
		ids = append(ids, s.SubscriberID)
	}
	return ids
}

func newResolver(dir repository.SubscriberDirectory, timeout time.Duration) *CandidateResolver {
	return NewCandidateResolver(dir, geo.DefaultPrecision, 9, timeout, zap.NewNop(), nil)
}

func TestCandidateResolver_Resolve(t *testing.T) {
	r := newResolver(penangDirectory(t), time.Second)

	res, err := r.Resolve(context.Background(), penangIncident, 50)
	require.NoError(t, err)
	assert.False(t, res.Partial)
	assert.ElementsMatch(t, []string{"A", "B"}, candidateIDs(res.Candidates))
	assert.GreaterOrEqual(t, res.Boxes, 1)
	assert.LessOrEqual(t, res.Boxes, 9)
}

func TestCandidateResolver_DeduplicatesAcrossBoxes(t *testing.T) {
	// A wildcard-like directory that returns A from every box.
	dir := penangDirectory(t)
	r := newResolver(&repeatingDirectory{SubscriberDirectory: dir}, time.Second)

	res, err := r.Resolve(context.Background(), penangIncident, 50)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, candidateIDs(res.Candidates))
}

type repeatingDirectory struct {
	repository.SubscriberDirectory
}

func (d *repeatingDirectory) ScanRange(ctx context.Context, low, high string) ([]*entities.AlertSubscription, error) {
	a, err := d.SubscriberDirectory.Get(ctx, "A")
	if err != nil {
		return nil, err
	}
	return []*entities.AlertSubscription{a}, nil
}

func TestCandidateResolver_PartialFailure(t *testing.T) {
	ranges := geo.CoveringBoxes(penangIncident.Latitude, penangIncident.Longitude, 50000)
	require.Greater(t, len(ranges), 1)

	// Fail every box that does not hold subscriber A.
	keyA := geo.Encode(penangA.Latitude, penangA.Longitude, geo.DefaultPrecision)
	failLows := map[string]bool{}
	for _, kr := range ranges {
		if !kr.Contains(keyA) {
			failLows[kr.Low] = true
		}
	}

	r := newResolver(&flakyDirectory{SubscriberDirectory: penangDirectory(t), failLows: failLows}, time.Second)
	res, err := r.Resolve(context.Background(), penangIncident, 50)
	require.NoError(t, err)
	assert.True(t, res.Partial)
	assert.Len(t, res.Failures, len(failLows))
	assert.Contains(t, candidateIDs(res.Candidates), "A")
}

func TestCandidateResolver_AllBoxesFail(t *testing.T) {
	r := newResolver(&flakyDirectory{SubscriberDirectory: penangDirectory(t), failAll: true}, time.Second)

	res, err := r.Resolve(context.Background(), penangIncident, 50)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrDirectoryUnavailable)
	assert.ErrorIs(t, err, errScanFailed)
}

func TestCandidateResolver_ScanTimeout(t *testing.T) {
	slow := &flakyDirectory{SubscriberDirectory: penangDirectory(t), delay: 200 * time.Millisecond}
	r := newResolver(slow, 10*time.Millisecond)

	start := time.Now()
	_, err := r.Resolve(context.Background(), penangIncident, 50)
	assert.ErrorIs(t, err, ErrDirectoryUnavailable)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), 150*time.Millisecond)
}
