package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"geosafe/internal/config"
	"geosafe/internal/domain/entities"
	"geosafe/internal/metrics"
	"geosafe/internal/repository"
)

// CycleResult describes what one alert cycle did.
type CycleResult struct {
	Outcome    string                  `json:"outcome"`
	Event      *entities.DispatchEvent `json:"event,omitempty"`
	Candidates int                     `json:"candidates"`
	Recipients int                     `json:"recipients"`
	Partial    bool                    `json:"partial"`
	Dispatch   *DispatchResult         `json:"dispatch,omitempty"`
}

// AlertPipeline runs the alert cycle for each report write: detect the
// Confirmed transition, claim the dispatch, resolve candidates, filter by
// distance and deliver.
//
// The claim is taken before any subscriber is read, so a retried or
// duplicated trigger for the same report stops at the claim. It is released
// only if the cycle fails before anything was sent.
type AlertPipeline struct {
	detector *TransitionDetector
	claims   repository.ClaimStore
	resolver *CandidateResolver
	notifier *NotificationService
	geo      config.GeoConfig
	claimTTL time.Duration
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

func NewAlertPipeline(
	detector *TransitionDetector,
	claims repository.ClaimStore,
	resolver *CandidateResolver,
	notifier *NotificationService,
	geo config.GeoConfig,
	claimTTL time.Duration,
	logger *zap.Logger,
	m *metrics.Metrics,
) *AlertPipeline {
	return &AlertPipeline{
		detector: detector,
		claims:   claims,
		resolver: resolver,
		notifier: notifier,
		geo:      geo,
		claimTTL: claimTTL,
		logger:   logger,
		metrics:  m,
	}
}

// HandleReportWrite runs one cycle. An error means the cycle failed and may
// be retried by the trigger; every other outcome is final.
func (p *AlertPipeline) HandleReportWrite(ctx context.Context, w entities.ReportWrite) (*CycleResult, error) {
	event, fire := p.detector.Detect(w)
	if !fire {
		p.metrics.AlertCycle(metrics.OutcomeIgnored)
		return &CycleResult{Outcome: metrics.OutcomeIgnored}, nil
	}

	start := time.Now()
	log := p.logger.With(zap.String("report_id", event.ReportID), zap.String("event_id", event.EventID))
	result := &CycleResult{Event: &event, Outcome: metrics.OutcomeFailed}
	defer func() { p.metrics.CycleDuration(result.Outcome, time.Since(start)) }()

	claimed, err := p.claims.Claim(ctx, event.ClaimKey(), p.claimTTL)
	if err != nil {
		p.metrics.AlertCycle(metrics.OutcomeFailed)
		return nil, fmt.Errorf("claim dispatch for %s: %w", event.ReportID, err)
	}
	if !claimed {
		log.Info("dispatch already claimed")
		p.metrics.AlertCycle(metrics.OutcomeDuplicate)
		result.Outcome = metrics.OutcomeDuplicate
		return result, nil
	}

	res, err := p.resolver.Resolve(ctx, event.Report.Location, p.searchRadiusKm())
	if err != nil {
		p.release(ctx, log, event.ClaimKey())
		p.metrics.AlertCycle(metrics.OutcomeFailed)
		return nil, fmt.Errorf("resolve candidates for %s: %w", event.ReportID, err)
	}
	result.Candidates = len(res.Candidates)
	result.Partial = res.Partial

	recipients := FilterRecipients(event.Report.Location, res.Candidates)
	result.Recipients = len(recipients)
	p.metrics.Recipients(len(recipients))
	if len(recipients) == 0 {
		log.Info("no subscribers in range", zap.Int("candidates", len(res.Candidates)))
		p.metrics.AlertCycle(metrics.OutcomeNoRecipients)
		result.Outcome = metrics.OutcomeNoRecipients
		return result, nil
	}

	result.Dispatch = p.notifier.Dispatch(ctx, recipients, event.Report.Summary())
	result.Outcome = metrics.OutcomeDispatched
	p.metrics.AlertCycle(metrics.OutcomeDispatched)

	log.Info("alert cycle complete",
		zap.Int("candidates", result.Candidates),
		zap.Int("recipients", result.Recipients),
		zap.Bool("partial", result.Partial),
		zap.Int("unregistered_tokens", len(result.Dispatch.UnregisteredTokens())),
	)
	return result, nil
}

// searchRadiusKm never goes below the largest radius a subscriber may pick,
// otherwise subscribers with wide radii would never become candidates.
func (p *AlertPipeline) searchRadiusKm() float64 {
	return max(p.geo.SearchRadiusKm, entities.MaxRadiusKm)
}

// release frees the claim so a retry can run. It ignores cancellation of the
// cycle context, which is often the reason the cycle failed.
func (p *AlertPipeline) release(ctx context.Context, log *zap.Logger, key string) {
	if err := p.claims.Release(context.WithoutCancel(ctx), key); err != nil {
		log.Error("release dispatch claim", zap.Error(err))
	}
}
