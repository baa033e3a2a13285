package entities

import (
	"encoding/json"
	"errors"
	"time"
)

// ReportStatus is the verification state of a report. The only legal
// transition is Unconfirmed → Confirmed.
type ReportStatus string

const (
	StatusUnconfirmed ReportStatus = "Unconfirmed"
	StatusConfirmed   ReportStatus = "Confirmed"
)

// Category classifies an incident.
type Category string

const (
	CategoryHazard   Category = "Hazard"
	CategoryAccident Category = "Accident"
	CategoryFlood    Category = "Flood"
	CategoryFire     Category = "Fire"
)

// GuestReporter is recorded as ReporterID for anonymous submissions.
const GuestReporter = "guest"

var (
	ErrInvalidCategory = errors.New("invalid report category")
	ErrInvalidStatus   = errors.New("invalid report status")
	ErrEmptyTitle      = errors.New("report title is required")
)

// ParseCategory resolves a category name.
func ParseCategory(s string) (Category, error) {
	switch c := Category(s); c {
	case CategoryHazard, CategoryAccident, CategoryFlood, CategoryFire:
		return c, nil
	}
	return "", ErrInvalidCategory
}

// ParseStatus resolves a status name. The empty string is Unconfirmed.
func ParseStatus(s string) (ReportStatus, error) {
	switch st := ReportStatus(s); st {
	case "":
		return StatusUnconfirmed, nil
	case StatusUnconfirmed, StatusConfirmed:
		return st, nil
	}
	return "", ErrInvalidStatus
}

// Report is a geolocated incident submitted by the community.
//
// ConfirmVotes and DenyVotes are only ever changed by the vote ledger's
// atomic increment; nothing else writes them.
type Report struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Category     Category     `json:"category"`
	Location     Location     `json:"location"`
	Status       ReportStatus `json:"status"`
	ConfirmVotes int          `json:"confirmVotes"`
	DenyVotes    int          `json:"denyVotes"`
	CreatedAt    time.Time    `json:"createdAt"`
	ReporterID   string       `json:"reporterId"`
	ReporterName string       `json:"reporterName,omitempty"`
	EvidenceURL  string       `json:"evidenceUrl,omitempty"`
}

// NewReport creates an Unconfirmed report with zeroed counters. An empty
// reporterID records the submission as a guest's.
func NewReport(id, title string, category Category, loc Location, reporterID string) *Report {
	if reporterID == "" {
		reporterID = GuestReporter
	}
	return &Report{
		ID:         id,
		Title:      title,
		Category:   category,
		Location:   loc,
		Status:     StatusUnconfirmed,
		CreatedAt:  time.Now().UTC(),
		ReporterID: reporterID,
	}
}

// IsConfirmed reports whether the report has been verified.
func (r *Report) IsConfirmed() bool {
	return r != nil && r.Status == StatusConfirmed
}

// Normalize fills the defaults that stored or decoded reports may omit.
func (r *Report) Normalize() {
	if r.Status == "" {
		r.Status = StatusUnconfirmed
	}
	if r.ReporterID == "" {
		r.ReporterID = GuestReporter
	}
}

// Validate checks the fields a submission must carry.
func (r *Report) Validate() error {
	if r.Title == "" {
		return ErrEmptyTitle
	}
	if _, err := ParseCategory(string(r.Category)); err != nil {
		return err
	}
	if _, err := ParseStatus(string(r.Status)); err != nil {
		return err
	}
	return r.Location.Validate()
}

// Clone returns a copy that shares no mutable state with r.
func (r *Report) Clone() *Report {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

// UnmarshalJSON applies Normalize so a decoded report never carries an empty
// status.
//
// Go Learning Note — Alias Types in UnmarshalJSON:
// Decoding into `*Report` here would recurse forever. Declaring
// `type reportAlias Report` produces a type with the same fields but none of
// Report's methods, so json.Unmarshal uses the default struct decoder.
func (r *Report) UnmarshalJSON(data []byte) error {
	type reportAlias Report
	var a reportAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*r = Report(a)
	r.Normalize()
	return nil
}

// ReportWrite is the before/after pair delivered for every report write.
// Before is nil on creation and After is nil on deletion.
type ReportWrite struct {
	ReportID   string    `json:"reportId"`
	Before     *Report   `json:"before,omitempty"`
	After      *Report   `json:"after,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// ChangeKind labels an entry in the live report stream.
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeModified ChangeKind = "modified"
	ChangeRemoved  ChangeKind = "removed"
)

// ReportChange is one incremental update delivered to stream subscribers.
type ReportChange struct {
	Kind   ChangeKind `json:"kind"`
	Report *Report    `json:"report"`
}

// ChangeFromWrite derives the stream change for a write.
func ChangeFromWrite(w ReportWrite) ReportChange {
	switch {
	case w.After == nil:
		return ReportChange{Kind: ChangeRemoved, Report: w.Before}
	case w.Before == nil:
		return ReportChange{Kind: ChangeAdded, Report: w.After}
	default:
		return ReportChange{Kind: ChangeModified, Report: w.After}
	}
}

// ReportFilter narrows a report listing. Empty sets match everything.
type ReportFilter struct {
	Categories []Category
	Statuses   []ReportStatus
	ReporterID string

	// Since drops reports created before it. Zero means no lower bound.
	Since time.Time
	Limit int
}

// Matches reports whether r passes the filter.
func (f ReportFilter) Matches(r *Report) bool {
	if f.ReporterID != "" && r.ReporterID != f.ReporterID {
		return false
	}
	if len(f.Categories) > 0 && !contains(f.Categories, r.Category) {
		return false
	}
	if len(f.Statuses) > 0 && !contains(f.Statuses, r.Status) {
		return false
	}
	if !f.Since.IsZero() && r.CreatedAt.Before(f.Since) {
		return false
	}
	return true
}

func contains[T comparable](set []T, v T) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
