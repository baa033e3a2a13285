// Package repository declares the storage ports of the alert engine. The
// memory adapters back tests and single-instance runs; sqlstore and
// redisstore back production deployments.
package repository

import (
	"context"
	"errors"
	"time"

	"geosafe/internal/domain/entities"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	// ErrAlreadyVoted is returned by VoteStore.CastVote when the voter already
	// has a ballot on the report. Nothing is mutated in that case.
	ErrAlreadyVoted = errors.New("already voted")
)

// ReportMutation carries the before/after snapshots of one report write.
type ReportMutation struct {
	Before *entities.Report
	After  *entities.Report
}

type ReportRepository interface {
	Create(ctx context.Context, report *entities.Report) error
	GetByID(ctx context.Context, id string) (*entities.Report, error)
	// List returns reports matching the filter, newest first.
	List(ctx context.Context, filter entities.ReportFilter) ([]*entities.Report, error)
	// SetStatus changes the status and returns both snapshots. Setting the
	// current status again is not an error.
	SetStatus(ctx context.Context, id string, status entities.ReportStatus) (ReportMutation, error)
	// Delete removes the report together with all of its votes, atomically,
	// and returns the deleted snapshot.
	Delete(ctx context.Context, id string) (*entities.Report, error)
}

// VoteStore is the persistence half of the vote ledger.
type VoteStore interface {
	// CastVote inserts the vote if (ReportID, VoterID) is absent and, in the
	// same atomic step, increments the matching counter on the report by one.
	// It returns ErrAlreadyVoted or ErrNotFound without mutating anything.
	CastVote(ctx context.Context, vote *entities.Vote) (ReportMutation, error)
	GetVote(ctx context.Context, reportID, voterID string) (*entities.Vote, error)
	CountVotes(ctx context.Context, reportID string) (int, error)
}

// SubscriberDirectory stores alert subscriptions ordered by geohash.
type SubscriberDirectory interface {
	Upsert(ctx context.Context, sub *entities.AlertSubscription) error
	Get(ctx context.Context, subscriberID string) (*entities.AlertSubscription, error)
	// ScanRange returns every subscription whose geohash g satisfies
	// low <= g <= high.
	ScanRange(ctx context.Context, low, high string) ([]*entities.AlertSubscription, error)
	// All iterates every subscription in subscriber order, in pages.
	All(ctx context.Context, pageSize int, fn func([]*entities.AlertSubscription) error) error
}

// ClaimStore is a TTL-bound conditional key write, the equivalent of Redis
// `SET key value NX PX ttl`.
type ClaimStore interface {
	// Claim returns true if the key was absent (or expired) and is now held.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}
