package entities

import "time"

// DispatchEvent is emitted once per Unconfirmed → Confirmed transition. It
// lives only for the duration of one alert cycle.
type DispatchEvent struct {
	EventID    string       `json:"eventId"`
	ReportID   string       `json:"reportId"`
	From       ReportStatus `json:"from"`
	To         ReportStatus `json:"to"`
	OccurredAt time.Time    `json:"occurredAt"`
	Report     *Report      `json:"report"`
}

// ClaimKey is the de-duplication key used to make the event's dispatch
// at-most-once.
func (e DispatchEvent) ClaimKey() string {
	return "dispatch:" + e.ReportID
}

// ReportSummary is the subset of a report that alert text is built from.
type ReportSummary struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Category    Category `json:"category"`
	EvidenceURL string   `json:"evidenceUrl,omitempty"`
}

// Summary extracts the alert fields of r.
func (r *Report) Summary() ReportSummary {
	return ReportSummary{
		ID:          r.ID,
		Title:       r.Title,
		Category:    r.Category,
		EvidenceURL: r.EvidenceURL,
	}
}

// Recipient is a subscription that passed the exact distance check.
type Recipient struct {
	Subscription *AlertSubscription `json:"subscription"`
	DistanceKm   float64            `json:"distanceKm"`
}
