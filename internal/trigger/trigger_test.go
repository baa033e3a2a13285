package trigger

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"geosafe/internal/domain/entities"
	"geosafe/internal/services"
)

type fakeHandler struct {
	mu       sync.Mutex
	writes   []entities.ReportWrite
	failures int
	done     chan struct{}
}

func (h *fakeHandler) HandleReportWrite(ctx context.Context, w entities.ReportWrite) (*services.CycleResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.writes = append(h.writes, w)
	if h.failures > 0 {
		h.failures--
		return nil, errors.New("directory down")
	}
	if h.done != nil {
		close(h.done)
		h.done = nil
	}
	return &services.CycleResult{Outcome: "dispatched"}, nil
}

func (h *fakeHandler) calls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.writes)
}

func TestLocal_PublishRunsCycle(t *testing.T) {
	h := &fakeHandler{}
	l := NewLocal(h, time.Second, zap.NewNop())
	defer l.Close()

	require.NoError(t, l.Publish(context.Background(), entities.ReportWrite{ReportID: "r1"}))
	l.Wait()
	assert.Equal(t, 1, h.calls())
}

func TestLocal_RetriesFailedCycle(t *testing.T) {
	h := &fakeHandler{failures: 1}
	l := NewLocal(h, time.Second, zap.NewNop())
	defer l.Close()

	require.NoError(t, l.Publish(context.Background(), entities.ReportWrite{ReportID: "r1"}))
	l.Wait()
	assert.Equal(t, 2, h.calls())
}

func TestLocal_GivesUpAfterAttempts(t *testing.T) {
	h := &fakeHandler{failures: 10}
	l := NewLocal(h, time.Second, zap.NewNop())
	defer l.Close()

	require.NoError(t, l.Publish(context.Background(), entities.ReportWrite{ReportID: "r1"}))
	l.Wait()
	assert.Equal(t, DefaultAttempts, h.calls())
}

func TestLocal_OutlivesRequestContext(t *testing.T) {
	h := &fakeHandler{}
	l := NewLocal(h, time.Second, zap.NewNop())
	defer l.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, l.Publish(ctx, entities.ReportWrite{ReportID: "r1"}))
	l.Wait()
	assert.Equal(t, 1, h.calls())
}

// Requires a running server, e.g. GEOSAFE_TEST_NATS_URL=nats://127.0.0.1:4222.
func TestNATS_RoundTrip(t *testing.T) {
	url := os.Getenv("GEOSAFE_TEST_NATS_URL")
	if url == "" {
		t.Skip("GEOSAFE_TEST_NATS_URL not set")
	}
	nc, err := Connect(url, "geosafe-test", zap.NewNop())
	require.NoError(t, err)
	defer nc.Close()

	subject := "geosafe.test." + time.Now().Format("150405.000000")
	h := &fakeHandler{done: make(chan struct{})}
	done := h.done
	sub := NewNATSSubscriber(nc, subject, "test", h, time.Second, zap.NewNop())
	require.NoError(t, sub.Start())
	defer sub.Stop()

	after := entities.NewReport("r1", "Fire", entities.CategoryFire, entities.NewLocation(1, 2), "alice")
	require.NoError(t, NewNATSPublisher(nc, subject).Publish(context.Background(), entities.ReportWrite{ReportID: "r1", After: after}))
	require.NoError(t, nc.Flush())

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("write not delivered")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	require.NotNil(t, h.writes[0].After)
	assert.Equal(t, "Fire", h.writes[0].After.Title)
}
