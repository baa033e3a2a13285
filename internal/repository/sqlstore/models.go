// Package sqlstore implements the repository ports on gorm. Any gorm dialect
// works; SQLite, MySQL and PostgreSQL are wired in internal/database.
package sqlstore

import (
	"time"

	"gorm.io/gorm"

	"geosafe/internal/domain/entities"
)

type reportRow struct {
	ID           string    `gorm:"primaryKey;size:64"`
	Title        string    `gorm:"size:256;not null"`
	Category     string    `gorm:"size:16;index"`
	Lat          float64   `gorm:"not null"`
	Lng          float64   `gorm:"not null"`
	Status       string    `gorm:"size:16;index"`
	ConfirmVotes int       `gorm:"not null;default:0"`
	DenyVotes    int       `gorm:"not null;default:0"`
	CreatedAt    time.Time `gorm:"index"`
	ReporterID   string    `gorm:"size:128;index"`
	ReporterName string    `gorm:"size:128"`
	EvidenceURL  string    `gorm:"size:1024"`
}

func (reportRow) TableName() string { return "reports" }

// AfterFind applies the status default to rows written before the column was
// populated.
func (r *reportRow) AfterFind(tx *gorm.DB) error {
	if r.Status == "" {
		r.Status = string(entities.StatusUnconfirmed)
	}
	return nil
}

func newReportRow(r *entities.Report) *reportRow {
	return &reportRow{
		ID:           r.ID,
		Title:        r.Title,
		Category:     string(r.Category),
		Lat:          r.Location.Latitude,
		Lng:          r.Location.Longitude,
		Status:       string(r.Status),
		ConfirmVotes: r.ConfirmVotes,
		DenyVotes:    r.DenyVotes,
		CreatedAt:    r.CreatedAt,
		ReporterID:   r.ReporterID,
		ReporterName: r.ReporterName,
		EvidenceURL:  r.EvidenceURL,
	}
}

func (r *reportRow) entity() *entities.Report {
	report := &entities.Report{
		ID:           r.ID,
		Title:        r.Title,
		Category:     entities.Category(r.Category),
		Location:     entities.NewLocation(r.Lat, r.Lng),
		Status:       entities.ReportStatus(r.Status),
		ConfirmVotes: r.ConfirmVotes,
		DenyVotes:    r.DenyVotes,
		CreatedAt:    r.CreatedAt,
		ReporterID:   r.ReporterID,
		ReporterName: r.ReporterName,
		EvidenceURL:  r.EvidenceURL,
	}
	report.Normalize()
	return report
}

type voteRow struct {
	ReportID  string    `gorm:"primaryKey;size:64"`
	VoterID   string    `gorm:"primaryKey;size:128"`
	VoteType  string    `gorm:"size:8;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (voteRow) TableName() string { return "votes" }

type subscriptionRow struct {
	SubscriberID string    `gorm:"primaryKey;size:128"`
	Enabled      bool      `gorm:"not null"`
	HomeLat      *float64  `gorm:"column:home_lat"`
	HomeLng      *float64  `gorm:"column:home_lng"`
	Geohash      string    `gorm:"size:12;index"`
	RadiusKm     float64   `gorm:"not null"`
	PushToken    string    `gorm:"size:512"`
	UpdatedAt    time.Time `gorm:"not null"`
}

func (subscriptionRow) TableName() string { return "alert_subscriptions" }

// AfterFind applies the radius default.
func (s *subscriptionRow) AfterFind(tx *gorm.DB) error {
	if s.RadiusKm == 0 {
		s.RadiusKm = entities.DefaultRadiusKm
	}
	return nil
}

func newSubscriptionRow(s *entities.AlertSubscription) *subscriptionRow {
	row := &subscriptionRow{
		SubscriberID: s.SubscriberID,
		Enabled:      s.Enabled,
		Geohash:      s.Geohash,
		RadiusKm:     s.RadiusKm,
		PushToken:    s.PushToken,
		UpdatedAt:    s.UpdatedAt,
	}
	if s.Home != nil {
		lat, lng := s.Home.Latitude, s.Home.Longitude
		row.HomeLat, row.HomeLng = &lat, &lng
	}
	return row
}

func (s *subscriptionRow) entity() *entities.AlertSubscription {
	sub := &entities.AlertSubscription{
		SubscriberID: s.SubscriberID,
		Enabled:      s.Enabled,
		Geohash:      s.Geohash,
		RadiusKm:     s.RadiusKm,
		PushToken:    s.PushToken,
		UpdatedAt:    s.UpdatedAt,
	}
	if s.HomeLat != nil && s.HomeLng != nil {
		home := entities.NewLocation(*s.HomeLat, *s.HomeLng)
		sub.Home = &home
	}
	sub.Normalize()
	return sub
}

// Migrate creates or updates every table the stores use.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&reportRow{}, &voteRow{}, &subscriptionRow{})
}
