package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"geosafe/internal/domain/entities"
	"geosafe/internal/geo"
	"geosafe/internal/repository/memory"
)

func ptr[T any](v T) *T { return &v }

func setupSubscriptionService() (*SubscriptionService, *memory.SubscriberDirectory) {
	dir := memory.NewSubscriberDirectory()
	return NewSubscriptionService(dir, geo.DefaultPrecision, zap.NewNop()), dir
}

func TestSubscriptionService_GetDefaults(t *testing.T) {
	s, _ := setupSubscriptionService()

	sub, err := s.Get(context.Background(), "alice")
	require.NoError(t, err)
	assert.False(t, sub.Enabled)
	assert.Equal(t, entities.DefaultRadiusKm, sub.RadiusKm)

	_, err = s.Get(context.Background(), entities.GuestReporter)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestSubscriptionService_UpdateReindexes(t *testing.T) {
	s, dir := setupSubscriptionService()
	ctx := context.Background()

	sub, err := s.Update(ctx, "alice", UpdateSubscriptionInput{
		Enabled:   ptr(true),
		Home:      &penangA,
		PushToken: ptr("tok"),
	})
	require.NoError(t, err)
	assert.Equal(t, "w0zq6xg822", sub.Geohash)

	// Moving home rewrites the key; the old key no longer matches.
	sub, err = s.Update(ctx, "alice", UpdateSubscriptionInput{Home: &kualaLumpur, RadiusKm: ptr(20.0)})
	require.NoError(t, err)
	assert.Equal(t, geo.Encode(kualaLumpur.Latitude, kualaLumpur.Longitude, geo.DefaultPrecision), sub.Geohash)
	assert.True(t, sub.Enabled)
	assert.Equal(t, 20.0, sub.RadiusKm)

	found, err := dir.ScanRange(ctx, "w0zq6xg822", "w0zq6xg822")
	require.NoError(t, err)
	assert.Empty(t, found)

	sub, err = s.Update(ctx, "alice", UpdateSubscriptionInput{ClearHome: true})
	require.NoError(t, err)
	assert.Nil(t, sub.Home)
	assert.Empty(t, sub.Geohash)
}

func TestSubscriptionService_UpdateValidation(t *testing.T) {
	tests := []struct {
		name  string
		input UpdateSubscriptionInput
		want  error
	}{
		{name: "radius too large", input: UpdateSubscriptionInput{RadiusKm: ptr(51.0)}, want: entities.ErrInvalidRadius},
		{name: "radius zero", input: UpdateSubscriptionInput{RadiusKm: ptr(0.0)}, want: entities.ErrInvalidRadius},
		{name: "negative radius", input: UpdateSubscriptionInput{RadiusKm: ptr(-1.0)}, want: entities.ErrInvalidRadius},
		{name: "bad home", input: UpdateSubscriptionInput{Home: &entities.Location{Latitude: 0, Longitude: 200}}, want: entities.ErrInvalidLocation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, dir := setupSubscriptionService()
			_, err := s.Update(context.Background(), "alice", tt.input)
			assert.ErrorIs(t, err, tt.want)
			assert.Zero(t, dir.Count())
		})
	}
}

func TestSubscriptionService_RepairGeohashes(t *testing.T) {
	s, dir := setupSubscriptionService()
	ctx := context.Background()

	good := subscriber("good", penangA, 5)
	stale := subscriber("stale", penangB, 5)
	stale.Geohash = "w0zr"
	require.NoError(t, dir.Upsert(ctx, good))
	require.NoError(t, dir.Upsert(ctx, stale))

	fixed, err := s.RepairGeohashes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, fixed)

	repaired, err := dir.Get(ctx, "stale")
	require.NoError(t, err)
	assert.Equal(t, "w0zrqcjzgd", repaired.Geohash)
}
