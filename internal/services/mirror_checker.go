package services

import (
	"fmt"

	"geosafe/internal/domain/entities"
)

const localAlertTitle = "⚠️ DANGER NEARBY!"

// LocalAlert is the notification a client raises on its own device when a
// report near its home becomes Confirmed.
type LocalAlert struct {
	ReportID   string  `json:"reportId"`
	Title      string  `json:"title"`
	Body       string  `json:"body"`
	DistanceKm float64 `json:"distanceKm"`
}

// MirrorChecker is the client-side fallback path. It watches the report
// stream for one subscriber and raises a LocalAlert on each transition into
// Confirmed that falls within the subscriber's radius, using the same
// distance rule as server dispatch.
type MirrorChecker struct {
	sub     *entities.AlertSubscription
	tracker *StatusTracker
}

func NewMirrorChecker(sub *entities.AlertSubscription, trackerSize int) *MirrorChecker {
	return &MirrorChecker{
		sub:     sub.Clone(),
		tracker: NewStatusTracker(trackerSize),
	}
}

// HandleSnapshot replaces the remembered statuses with a fresh snapshot. It
// never raises alerts.
func (m *MirrorChecker) HandleSnapshot(reports []*entities.Report) {
	m.tracker.Reset()
	m.tracker.Seed(reports)
}

// HandleChange returns an alert if the change is a qualifying transition.
func (m *MirrorChecker) HandleChange(change entities.ReportChange) (*LocalAlert, bool) {
	if !m.tracker.Observe(change) {
		return nil, false
	}
	if m.sub == nil || !m.sub.Enabled || m.sub.Home == nil {
		return nil, false
	}
	r := change.Report
	distance, ok := WithinAlertRadius(r.Location, m.sub)
	if !ok {
		return nil, false
	}
	return &LocalAlert{
		ReportID:   r.ID,
		Title:      localAlertTitle,
		Body:       fmt.Sprintf("%s has been VERIFIED within %.1fkm of your location.", plainText(r.Title), distance),
		DistanceKm: distance,
	}, true
}
