package trigger

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"geosafe/internal/domain/entities"
)

// Local runs each alert cycle on its own goroutine in this process. Publish
// returns immediately so the write request that caused it is not delayed by
// dispatch.
type Local struct {
	runner runner
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewLocal(handler Handler, cycleTimeout time.Duration, logger *zap.Logger) *Local {
	ctx, cancel := context.WithCancel(context.Background())
	return &Local{
		runner: newRunner(handler, cycleTimeout, logger),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Publish schedules a cycle for w. The request context is not used: the
// cycle must outlive the request that triggered it.
func (l *Local) Publish(_ context.Context, w entities.ReportWrite) error {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.runner.run(l.ctx, w)
	}()
	return nil
}

// Wait blocks until every scheduled cycle has finished.
func (l *Local) Wait() {
	l.wg.Wait()
}

// Close stops pending retries and waits for running cycles.
func (l *Local) Close() {
	l.cancel()
	l.wg.Wait()
}
