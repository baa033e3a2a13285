// Package jobs runs periodic maintenance on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// GeohashRepairer rewrites subscription keys that drifted from their home
// location.
type GeohashRepairer interface {
	RepairGeohashes(ctx context.Context) (int, error)
}

// Scheduler wraps robfig/cron with zap logging and panic recovery.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

func NewScheduler(logger *zap.Logger) *Scheduler {
	cl := cronLogger{log: logger.Sugar()}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger: logger,
	}
}

// AddGeohashRepair schedules the repair job. An empty spec disables it.
func (s *Scheduler) AddGeohashRepair(spec string, repairer GeohashRepairer, timeout time.Duration) error {
	if spec == "" {
		return nil
	}
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		RunGeohashRepair(ctx, repairer, s.logger)
	})
	if err != nil {
		return fmt.Errorf("schedule geohash repair %q: %w", spec, err)
	}
	return nil
}

// RunGeohashRepair runs one repair pass and logs the outcome.
func RunGeohashRepair(ctx context.Context, repairer GeohashRepairer, logger *zap.Logger) {
	start := time.Now()
	fixed, err := repairer.RepairGeohashes(ctx)
	if err != nil {
		logger.Error("geohash repair failed", zap.Int("fixed", fixed), zap.Error(err))
		return
	}
	logger.Info("geohash repair finished",
		zap.Int("fixed", fixed),
		zap.Duration("took", time.Since(start)),
	)
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop waits for running jobs to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Entries reports how many jobs are scheduled.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
