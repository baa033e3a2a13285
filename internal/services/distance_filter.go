package services

import (
	"geosafe/internal/domain/entities"
	"geosafe/pkg/utils"
)

// Eligible reports whether a subscription can receive an alert at all.
func Eligible(sub *entities.AlertSubscription) bool {
	return sub != nil && sub.Enabled && sub.PushToken != "" && sub.Home != nil
}

// WithinAlertRadius returns the great-circle distance from the incident to the
// subscriber's home and whether it is within the subscriber's radius. The
// boundary is inclusive. The dispatch path and the client mirror both use
// this check.
func WithinAlertRadius(incident entities.Location, sub *entities.AlertSubscription) (float64, bool) {
	if sub == nil || sub.Home == nil {
		return 0, false
	}
	radius := sub.RadiusKm
	if radius == 0 {
		radius = entities.DefaultRadiusKm
	}
	return utils.WithinRadius(incident.Latitude, incident.Longitude, sub.Home.Latitude, sub.Home.Longitude, radius)
}

// FilterRecipients keeps the eligible candidates whose own radius contains the
// incident.
func FilterRecipients(incident entities.Location, candidates []*entities.AlertSubscription) []entities.Recipient {
	var out []entities.Recipient
	for _, sub := range candidates {
		if !Eligible(sub) {
			continue
		}
		if d, ok := WithinAlertRadius(incident, sub); ok {
			out = append(out, entities.Recipient{Subscription: sub, DistanceKm: d})
		}
	}
	return out
}
