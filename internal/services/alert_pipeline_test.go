package services

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"geosafe/internal/config"
	"geosafe/internal/domain/entities"
	"geosafe/internal/metrics"
	"geosafe/internal/repository"
	"geosafe/internal/repository/memory"
)

type pipelineFixture struct {
	pipeline *AlertPipeline
	claims   *memory.ClaimStore
	gateway  *fakeGateway
}

func setupAlertPipeline(t *testing.T, dir repository.SubscriberDirectory) *pipelineFixture {
	t.Helper()
	return setupAlertPipelineWith(t, dir, config.GeoConfig{DirectoryPrecision: 10, SearchRadiusKm: 50}, nil)
}

func setupAlertPipelineWith(t *testing.T, dir repository.SubscriberDirectory, geoCfg config.GeoConfig, m *metrics.Metrics) *pipelineFixture {
	t.Helper()
	claims := memory.NewClaimStore(time.Minute)
	gw := &fakeGateway{}
	resolver := newResolver(dir, time.Second)
	notifier := setupNotificationService(gw, 500, 2)
	p := NewAlertPipeline(
		NewTransitionDetector(),
		claims,
		resolver,
		notifier,
		geoCfg,
		10*time.Minute,
		zap.NewNop(),
		m,
	)
	return &pipelineFixture{pipeline: p, claims: claims, gateway: gw}
}

func verifiedWrite(id string, loc entities.Location) entities.ReportWrite {
	before := entities.NewReport(id, "Flash flood", entities.CategoryFlood, loc, "alice")
	after := before.Clone()
	after.Status = entities.StatusConfirmed
	return entities.ReportWrite{ReportID: id, Before: before, After: after}
}

func TestAlertPipeline_PenangEndToEnd(t *testing.T) {
	f := setupAlertPipeline(t, penangDirectory(t))

	result, err := f.pipeline.HandleReportWrite(context.Background(), verifiedWrite("r1", penangIncident))
	require.NoError(t, err)
	assert.Equal(t, metrics.OutcomeDispatched, result.Outcome)
	assert.Equal(t, 2, result.Candidates)
	assert.Equal(t, 1, result.Recipients)

	calls := f.gateway.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"token-A"}, calls[0])

	msg := f.gateway.messages[0]
	assert.Equal(t, "Flash flood is Flood near your location!", msg.Notification.Body)
	assert.Equal(t, "r1", msg.Data["reportId"])
	assert.True(t, f.claims.IsClaimed(context.Background(), "dispatch:r1"))
}

func TestAlertPipeline_DuplicateTriggerSendsOnce(t *testing.T) {
	f := setupAlertPipeline(t, penangDirectory(t))
	ctx := context.Background()

	first, err := f.pipeline.HandleReportWrite(ctx, verifiedWrite("r1", penangIncident))
	require.NoError(t, err)
	assert.Equal(t, metrics.OutcomeDispatched, first.Outcome)

	second, err := f.pipeline.HandleReportWrite(ctx, verifiedWrite("r1", penangIncident))
	require.NoError(t, err)
	assert.Equal(t, metrics.OutcomeDuplicate, second.Outcome)
	assert.Len(t, f.gateway.Calls(), 1)
}

func TestAlertPipeline_IgnoresNonTransitions(t *testing.T) {
	f := setupAlertPipeline(t, penangDirectory(t))

	confirmed := entities.NewReport("r1", "Fire", entities.CategoryFire, penangIncident, "alice")
	confirmed.Status = entities.StatusConfirmed
	voted := confirmed.Clone()
	voted.ConfirmVotes++

	writes := []entities.ReportWrite{
		{ReportID: "r1", After: entities.NewReport("r1", "Fire", entities.CategoryFire, penangIncident, "alice")},
		{ReportID: "r1", Before: confirmed, After: voted},
		{ReportID: "r1", Before: confirmed},
	}
	for _, w := range writes {
		result, err := f.pipeline.HandleReportWrite(context.Background(), w)
		require.NoError(t, err)
		assert.Equal(t, metrics.OutcomeIgnored, result.Outcome)
	}
	assert.Empty(t, f.gateway.Calls())
	assert.False(t, f.claims.IsClaimed(context.Background(), "dispatch:r1"))
}

func TestAlertPipeline_NoRecipients(t *testing.T) {
	f := setupAlertPipeline(t, penangDirectory(t))

	// Nobody lives within 50 km of this point in the Indian Ocean.
	result, err := f.pipeline.HandleReportWrite(context.Background(), verifiedWrite("r2", entities.NewLocation(-20, 80)))
	require.NoError(t, err)
	assert.Equal(t, metrics.OutcomeNoRecipients, result.Outcome)
	assert.Empty(t, f.gateway.Calls())
}

func TestAlertPipeline_DirectoryDownReleasesClaim(t *testing.T) {
	dir := &flakyDirectory{SubscriberDirectory: penangDirectory(t), failAll: true}
	f := setupAlertPipeline(t, dir)
	ctx := context.Background()

	_, err := f.pipeline.HandleReportWrite(ctx, verifiedWrite("r1", penangIncident))
	assert.ErrorIs(t, err, ErrDirectoryUnavailable)
	assert.False(t, f.claims.IsClaimed(ctx, "dispatch:r1"), "failed cycle must release its claim")
	assert.Empty(t, f.gateway.Calls())

	// Once the directory recovers, the retried trigger goes through.
	dir.failAll = false
	result, err := f.pipeline.HandleReportWrite(ctx, verifiedWrite("r1", penangIncident))
	require.NoError(t, err)
	assert.Equal(t, metrics.OutcomeDispatched, result.Outcome)
}

func TestAlertPipeline_SmallSearchRadiusKeepsWideSubscribers(t *testing.T) {
	ctx := context.Background()
	dir := memory.NewSubscriberDirectory()
	require.NoError(t, dir.Upsert(ctx, subscriber("B", penangB, 30)))

	f := setupAlertPipelineWith(t, dir, config.GeoConfig{DirectoryPrecision: 10, SearchRadiusKm: 5}, nil)
	result, err := f.pipeline.HandleReportWrite(ctx, verifiedWrite("r1", penangIncident))
	require.NoError(t, err)
	assert.Equal(t, metrics.OutcomeDispatched, result.Outcome)
	assert.Equal(t, 1, result.Recipients)
	require.Len(t, f.gateway.Calls(), 1)
	assert.Equal(t, []string{"token-B"}, f.gateway.Calls()[0])
}

func TestAlertPipeline_RecordsDurationForEveryFiredCycle(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	dir := &flakyDirectory{SubscriberDirectory: penangDirectory(t)}
	f := setupAlertPipelineWith(t, dir, config.GeoConfig{DirectoryPrecision: 10, SearchRadiusKm: 50}, m)

	// Ignored writes never fire and are not timed.
	_, err := f.pipeline.HandleReportWrite(ctx, entities.ReportWrite{ReportID: "r0"})
	require.NoError(t, err)
	n, err := testutil.GatherAndCount(reg, "geosafe_alert_cycle_duration_seconds")
	require.NoError(t, err)
	assert.Zero(t, n)

	result, err := f.pipeline.HandleReportWrite(ctx, verifiedWrite("r2", entities.NewLocation(-20, 80)))
	require.NoError(t, err)
	assert.Equal(t, metrics.OutcomeNoRecipients, result.Outcome)

	dir.failAll = true
	_, err = f.pipeline.HandleReportWrite(ctx, verifiedWrite("r1", penangIncident))
	require.Error(t, err)

	dir.failAll = false
	_, err = f.pipeline.HandleReportWrite(ctx, verifiedWrite("r1", penangIncident))
	require.NoError(t, err)
	_, err = f.pipeline.HandleReportWrite(ctx, verifiedWrite("r1", penangIncident))
	require.NoError(t, err)

	// One series per outcome: no_recipients, failed, dispatched, duplicate.
	n, err = testutil.GatherAndCount(reg, "geosafe_alert_cycle_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}
