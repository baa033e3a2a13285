package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"geosafe/internal/domain/entities"
	"geosafe/internal/geo"
	"geosafe/internal/push"
	"geosafe/internal/repository"
)

// Penang fixtures: subscriber A is ~0.96 km from the incident, B ~27.1 km,
// and Kuala Lumpur ~290 km.
var (
	penangIncident = entities.NewLocation(5.3556, 100.3025)
	penangA        = entities.NewLocation(5.36, 100.31)
	penangB        = entities.NewLocation(5.50, 100.50)
	kualaLumpur    = entities.NewLocation(3.1390, 101.6869)
)

func subscriber(id string, home entities.Location, radiusKm float64) *entities.AlertSubscription {
	sub := entities.NewAlertSubscription(id)
	sub.Enabled = true
	sub.RadiusKm = radiusKm
	sub.PushToken = "token-" + id
	h := home
	sub.Home = &h
	sub.Reindex(geo.DefaultPrecision)
	return sub
}

// recordingSink collects published writes.
type recordingSink struct {
	mu     sync.Mutex
	writes []entities.ReportWrite
	err    error
}

func (s *recordingSink) Publish(ctx context.Context, w entities.ReportWrite) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes = append(s.writes, w)
	return s.err
}

func (s *recordingSink) Writes() []entities.ReportWrite {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entities.ReportWrite(nil), s.writes...)
}

// fakeGateway answers SendMulticast with send, or succeeds for every token.
type fakeGateway struct {
	mu       sync.Mutex
	calls    [][]string
	messages []*push.Message
	send     func(call int, tokens []string) (*push.BatchResponse, error)

	inFlight atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
}

func (g *fakeGateway) SendMulticast(ctx context.Context, msg *push.Message, tokens []string) (*push.BatchResponse, error) {
	n := g.inFlight.Add(1)
	defer g.inFlight.Add(-1)
	for {
		p := g.peak.Load()
		if n <= p || g.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if g.delay > 0 {
		time.Sleep(g.delay)
	}

	g.mu.Lock()
	call := len(g.calls)
	g.calls = append(g.calls, append([]string(nil), tokens...))
	g.messages = append(g.messages, msg)
	g.mu.Unlock()

	if g.send != nil {
		return g.send(call, tokens)
	}
	return allSucceeded(tokens), nil
}

func (g *fakeGateway) Calls() [][]string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([][]string(nil), g.calls...)
}

func allSucceeded(tokens []string) *push.BatchResponse {
	resp := &push.BatchResponse{SuccessCount: len(tokens)}
	for _, tok := range tokens {
		resp.Responses = append(resp.Responses, push.SendResponse{Token: tok, Success: true})
	}
	return resp
}

var errScanFailed = errors.New("scan failed")

// flakyDirectory fails scans whose low key is in failLows, or every scan
// when failAll is set.
type flakyDirectory struct {
	repository.SubscriberDirectory
	failLows map[string]bool
	failAll  bool
	delay    time.Duration
}

func (d *flakyDirectory) ScanRange(ctx context.Context, low, high string) ([]*entities.AlertSubscription, error) {
	if d.delay > 0 {
		time.Sleep(d.delay)
	}
	if d.failAll || d.failLows[low] {
		return nil, errScanFailed
	}
	return d.SubscriberDirectory.ScanRange(ctx, low, high)
}
