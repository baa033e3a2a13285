// Package trigger delivers committed report writes to the alert pipeline,
// either in-process or through NATS.
package trigger

import (
	"context"
	"time"

	"github.com/jpillora/backoff"
	"go.uber.org/zap"

	"geosafe/internal/domain/entities"
	"geosafe/internal/services"
)

// DefaultAttempts is how many times a failed cycle is run before the write
// is given up on.
const DefaultAttempts = 3

// Handler runs one alert cycle for a write.
type Handler interface {
	HandleReportWrite(ctx context.Context, w entities.ReportWrite) (*services.CycleResult, error)
}

// runner invokes the handler under a per-cycle timeout and retries failed
// cycles with exponential backoff. A failed cycle has already released its
// dispatch claim, so the retry starts clean.
type runner struct {
	handler  Handler
	timeout  time.Duration
	attempts int
	backoff  backoff.Backoff
	logger   *zap.Logger
}

func newRunner(handler Handler, timeout time.Duration, logger *zap.Logger) runner {
	return runner{
		handler:  handler,
		timeout:  timeout,
		attempts: DefaultAttempts,
		backoff: backoff.Backoff{
			Min:    100 * time.Millisecond,
			Max:    2 * time.Second,
			Factor: 2,
			Jitter: true,
		},
		logger: logger,
	}
}

func (r runner) run(ctx context.Context, w entities.ReportWrite) {
	b := r.backoff
	for attempt := 1; ; attempt++ {
		result, err := r.once(ctx, w)
		if err == nil {
			r.logger.Debug("alert cycle finished",
				zap.String("report_id", w.ReportID),
				zap.String("outcome", result.Outcome),
			)
			return
		}
		if attempt >= r.attempts || ctx.Err() != nil {
			r.logger.Error("alert cycle failed",
				zap.String("report_id", w.ReportID),
				zap.Int("attempts", attempt),
				zap.Error(err),
			)
			return
		}
		wait := b.Duration()
		r.logger.Warn("alert cycle failed, retrying",
			zap.String("report_id", w.ReportID),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return
		}
	}
}

func (r runner) once(ctx context.Context, w entities.ReportWrite) (*services.CycleResult, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	return r.handler.HandleReportWrite(ctx, w)
}
