package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"geosafe/internal/domain/entities"
	"geosafe/internal/repository"
)

// UpdateSubscriptionInput is a partial update; nil fields are left as they
// are.
type UpdateSubscriptionInput struct {
	Enabled   *bool
	RadiusKm  *float64
	Home      *entities.Location
	ClearHome bool
	PushToken *string
}

// SubscriptionService manages alert preferences. The geohash key is
// recomputed on every save so it never drifts from the home location.
type SubscriptionService struct {
	directory repository.SubscriberDirectory
	precision int
	logger    *zap.Logger
}

func NewSubscriptionService(directory repository.SubscriberDirectory, precision int, logger *zap.Logger) *SubscriptionService {
	return &SubscriptionService{directory: directory, precision: precision, logger: logger}
}

// Get returns the subscriber's preferences, or the disabled defaults if none
// were saved yet.
func (s *SubscriptionService) Get(ctx context.Context, subscriberID string) (*entities.AlertSubscription, error) {
	if subscriberID == "" || subscriberID == entities.GuestReporter {
		return nil, ErrNotAuthenticated
	}
	sub, err := s.directory.Get(ctx, subscriberID)
	if errors.Is(err, repository.ErrNotFound) {
		return entities.NewAlertSubscription(subscriberID), nil
	}
	return sub, err
}

// Update applies in to the stored preferences and saves them.
func (s *SubscriptionService) Update(ctx context.Context, subscriberID string, in UpdateSubscriptionInput) (*entities.AlertSubscription, error) {
	sub, err := s.Get(ctx, subscriberID)
	if err != nil {
		return nil, err
	}

	if in.Enabled != nil {
		sub.Enabled = *in.Enabled
	}
	if in.RadiusKm != nil {
		sub.RadiusKm = *in.RadiusKm
		if sub.RadiusKm == 0 {
			return nil, entities.ErrInvalidRadius
		}
	}
	if in.ClearHome {
		sub.Home = nil
	}
	if in.Home != nil {
		home := *in.Home
		sub.Home = &home
	}
	if in.PushToken != nil {
		sub.PushToken = *in.PushToken
	}

	sub.Normalize()
	if err := sub.Validate(); err != nil {
		return nil, err
	}
	sub.Reindex(s.precision)
	sub.UpdatedAt = time.Now().UTC()

	if err := s.directory.Upsert(ctx, sub); err != nil {
		return nil, fmt.Errorf("save subscription %s: %w", subscriberID, err)
	}
	return sub, nil
}

// RepairGeohashes re-indexes every stored subscription whose key no longer
// matches its home location, such as rows written at another precision. It
// returns how many were fixed.
func (s *SubscriptionService) RepairGeohashes(ctx context.Context) (int, error) {
	fixed := 0
	err := s.directory.All(ctx, 500, func(page []*entities.AlertSubscription) error {
		for _, sub := range page {
			want := sub.Clone()
			want.Reindex(s.precision)
			if want.Geohash == sub.Geohash {
				continue
			}
			if err := s.directory.Upsert(ctx, want); err != nil {
				return fmt.Errorf("reindex %s: %w", sub.SubscriberID, err)
			}
			fixed++
		}
		return nil
	})
	if fixed > 0 {
		s.logger.Info("geohash repair", zap.Int("fixed", fixed))
	}
	return fixed, err
}
