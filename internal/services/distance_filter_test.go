package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"geosafe/internal/domain/entities"
)

func TestFilterRecipients(t *testing.T) {
	disabled := subscriber("disabled", penangA, 5)
	disabled.Enabled = false
	noToken := subscriber("no-token", penangA, 5)
	noToken.PushToken = ""
	noHome := subscriber("no-home", penangA, 5)
	noHome.Home = nil

	tests := []struct {
		name       string
		candidates []*entities.AlertSubscription
		want       []string
	}{
		{name: "nearby within radius", candidates: []*entities.AlertSubscription{subscriber("A", penangA, 5)}, want: []string{"A"}},
		{name: "far outside radius", candidates: []*entities.AlertSubscription{subscriber("B", penangB, 5)}},
		{name: "far with wide radius", candidates: []*entities.AlertSubscription{subscriber("B", penangB, 30)}, want: []string{"B"}},
		{name: "ineligible", candidates: []*entities.AlertSubscription{disabled, noToken, noHome}},
		{name: "nil candidate", candidates: []*entities.AlertSubscription{nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterRecipients(penangIncident, tt.candidates)
			var ids []string
			for _, r := range got {
				ids = append(ids, r.Subscription.SubscriberID)
				assert.Greater(t, r.DistanceKm, 0.0)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestWithinAlertRadius(t *testing.T) {
	d, ok := WithinAlertRadius(penangIncident, subscriber("A", penangA, 5))
	assert.True(t, ok)
	assert.InDelta(t, 0.96, d, 0.01)

	d, ok = WithinAlertRadius(penangIncident, subscriber("B", penangB, 5))
	assert.False(t, ok)
	assert.InDelta(t, 27.1, d, 0.1)

	// Zero radius falls back to the default.
	zero := subscriber("A", penangA, 0)
	_, ok = WithinAlertRadius(penangIncident, zero)
	assert.True(t, ok)
}
