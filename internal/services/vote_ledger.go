package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"geosafe/internal/domain/entities"
	"geosafe/internal/metrics"
	"geosafe/internal/repository"
)

// VoteReceipt is returned for an accepted vote.
type VoteReceipt struct {
	Vote   *entities.Vote   `json:"vote"`
	Report *entities.Report `json:"report"`
}

// VoteLedger records confirm/deny ballots, at most one per user per report.
type VoteLedger struct {
	store   repository.VoteStore
	sink    WriteSink
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewVoteLedger(store repository.VoteStore, sink WriteSink, logger *zap.Logger, m *metrics.Metrics) *VoteLedger {
	return &VoteLedger{store: store, sink: sink, logger: logger, metrics: m}
}

// CastVote records the ballot and increments the matching counter in one
// atomic step. Guests cannot vote. A second ballot from the same voter fails
// with ErrAlreadyVoted and leaves the counters untouched.
func (l *VoteLedger) CastVote(ctx context.Context, reportID, voterID, voteType string) (*VoteReceipt, error) {
	if voterID == "" || voterID == entities.GuestReporter {
		l.metrics.Vote(voteType, "unauthenticated")
		return nil, ErrNotAuthenticated
	}
	vt, err := entities.ParseVoteType(voteType)
	if err != nil {
		l.metrics.Vote("invalid", "rejected")
		return nil, err
	}

	vote := entities.NewVote(reportID, voterID, vt)
	mut, err := l.store.CastVote(ctx, vote)
	switch {
	case errors.Is(err, repository.ErrAlreadyVoted):
		l.metrics.Vote(vt.String(), "duplicate")
		return nil, ErrAlreadyVoted
	case errors.Is(err, repository.ErrNotFound):
		l.metrics.Vote(vt.String(), "not_found")
		return nil, ErrReportNotFound
	case err != nil:
		l.metrics.Vote(vt.String(), "error")
		return nil, fmt.Errorf("cast vote on %s: %w", reportID, err)
	}
	l.metrics.Vote(vt.String(), "accepted")

	publish(ctx, l.sink, l.logger, entities.ReportWrite{
		ReportID:   reportID,
		Before:     mut.Before,
		After:      mut.After,
		OccurredAt: vote.CreatedAt,
	})
	return &VoteReceipt{Vote: vote, Report: mut.After}, nil
}

// GetVote returns the caller's ballot on a report.
func (l *VoteLedger) GetVote(ctx context.Context, reportID, voterID string) (*entities.Vote, error) {
	v, err := l.store.GetVote(ctx, reportID, voterID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrVoteNotFound
	}
	return v, err
}

// publish delivers a committed write to the sink. The write already
// succeeded, so a sink failure is logged rather than returned to the caller.
func publish(ctx context.Context, sink WriteSink, logger *zap.Logger, w entities.ReportWrite) {
	if sink == nil {
		return
	}
	if w.OccurredAt.IsZero() {
		w.OccurredAt = time.Now().UTC()
	}
	if err := sink.Publish(ctx, w); err != nil {
		logger.Error("publish report write",
			zap.String("report_id", w.ReportID),
			zap.Error(err),
		)
	}
}
