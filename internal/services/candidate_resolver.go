package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"geosafe/internal/domain/entities"
	"geosafe/internal/geo"
	"geosafe/internal/metrics"
	"geosafe/internal/repository"
)

// BoxFailure records one covering-box scan that failed or timed out.
type BoxFailure struct {
	Range geo.KeyRange
	Err   error
}

// Resolution is the candidate set for one incident. Candidates is a superset
// of the true recipients and must still be distance-filtered.
type Resolution struct {
	Candidates []*entities.AlertSubscription
	Boxes      int
	// Partial is set when at least one box failed but others succeeded. The
	// candidates from the successful boxes are still usable.
	Partial  bool
	Failures []BoxFailure
}

// CandidateResolver scans the subscriber directory with the covering boxes of
// a search circle.
type CandidateResolver struct {
	directory    repository.SubscriberDirectory
	keyPrecision int
	concurrency  int
	scanTimeout  time.Duration
	logger       *zap.Logger
	metrics      *metrics.Metrics
}

func NewCandidateResolver(
	directory repository.SubscriberDirectory,
	keyPrecision int,
	concurrency int,
	scanTimeout time.Duration,
	logger *zap.Logger,
	m *metrics.Metrics,
) *CandidateResolver {
	if concurrency <= 0 {
		concurrency = 9
	}
	return &CandidateResolver{
		directory:    directory,
		keyPrecision: keyPrecision,
		concurrency:  concurrency,
		scanTimeout:  scanTimeout,
		logger:       logger,
		metrics:      m,
	}
}

// Resolve returns every subscription whose stored key falls in a covering box
// of the circle, de-duplicated by subscriber. It fails with
// ErrDirectoryUnavailable only if every box scan failed.
//
// Go Learning Note — errgroup.SetLimit:
// The boxes are scanned concurrently with at most `concurrency` scans in
// flight. The goroutines never return an error to the group: a failed box is
// recorded in its own slot so the other boxes keep running instead of being
// cancelled by errgroup.WithContext.
func (r *CandidateResolver) Resolve(ctx context.Context, center entities.Location, radiusKm float64) (*Resolution, error) {
	ranges := geo.CoveringBoxesAt(center.Latitude, center.Longitude, radiusKm*1000, r.keyPrecision)

	found := make([][]*entities.AlertSubscription, len(ranges))
	errs := make([]error, len(ranges))

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, kr := range ranges {
		g.Go(func() error {
			found[i], errs[i] = r.scan(ctx, kr)
			return nil
		})
	}
	_ = g.Wait()

	res := &Resolution{Boxes: len(ranges)}
	seen := make(map[string]struct{})
	for i, kr := range ranges {
		if errs[i] != nil {
			res.Failures = append(res.Failures, BoxFailure{Range: kr, Err: errs[i]})
			continue
		}
		for _, sub := range found[i] {
			if _, dup := seen[sub.SubscriberID]; dup {
				continue
			}
			seen[sub.SubscriberID] = struct{}{}
			res.Candidates = append(res.Candidates, sub)
		}
	}

	r.metrics.ScanFailures(len(res.Failures))
	if len(ranges) > 0 && len(res.Failures) == len(ranges) {
		joined := make([]error, 0, len(res.Failures))
		for _, f := range res.Failures {
			joined = append(joined, f.Err)
		}
		return nil, fmt.Errorf("%w: all %d scans failed: %w", ErrDirectoryUnavailable, len(ranges), errors.Join(joined...))
	}
	if len(res.Failures) > 0 {
		res.Partial = true
		for _, f := range res.Failures {
			r.logger.Warn("covering box scan failed",
				zap.String("low", f.Range.Low),
				zap.String("high", f.Range.High),
				zap.Error(f.Err),
			)
		}
	}
	return res, nil
}

// scan runs one range scan under the per-box timeout. The result channel is
// buffered so a directory that ignores its context can finish late without
// blocking.
func (r *CandidateResolver) scan(ctx context.Context, kr geo.KeyRange) ([]*entities.AlertSubscription, error) {
	if r.scanTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.scanTimeout)
		defer cancel()
	}

	type result struct {
		subs []*entities.AlertSubscription
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		subs, err := r.directory.ScanRange(ctx, kr.Low, kr.High)
		ch <- result{subs: subs, err: err}
	}()

	select {
	case res := <-ch:
		return res.subs, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
