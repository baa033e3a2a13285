package entities

import (
	"encoding/json"
	"errors"
	"time"

	"geosafe/internal/geo"
)

const (
	// DefaultRadiusKm applies to subscriptions saved without a radius.
	DefaultRadiusKm = 5.0
	// MaxRadiusKm is the largest radius a subscriber may choose.
	MaxRadiusKm = 50.0
)

var ErrInvalidRadius = errors.New("alert radius must be in (0, 50] km")

// AlertSubscription is one user's proximity alert preference. The directory
// keeps subscriptions ordered by Geohash so that covering boxes can be
// resolved with range scans.
type AlertSubscription struct {
	SubscriberID string    `json:"subscriberId"`
	Enabled      bool      `json:"enabled"`
	Home         *Location `json:"home,omitempty"`
	Geohash      string    `json:"geohash,omitempty"`
	RadiusKm     float64   `json:"radiusKm"`
	PushToken    string    `json:"pushToken,omitempty"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// NewAlertSubscription returns a disabled subscription with the default
// radius.
func NewAlertSubscription(subscriberID string) *AlertSubscription {
	return &AlertSubscription{
		SubscriberID: subscriberID,
		RadiusKm:     DefaultRadiusKm,
		UpdatedAt:    time.Now().UTC(),
	}
}

// Normalize applies the radius default.
func (s *AlertSubscription) Normalize() {
	if s.RadiusKm == 0 {
		s.RadiusKm = DefaultRadiusKm
	}
}

// Validate checks the radius range and the home coordinates.
func (s *AlertSubscription) Validate() error {
	if s.RadiusKm <= 0 || s.RadiusKm > MaxRadiusKm {
		return ErrInvalidRadius
	}
	if s.Home != nil {
		return s.Home.Validate()
	}
	return nil
}

// Reindex recomputes Geohash from Home at the given precision. It must run on
// every write so the stored key never drifts from the home location.
func (s *AlertSubscription) Reindex(precision int) {
	if s.Home == nil {
		s.Geohash = ""
		return
	}
	s.Geohash = geo.Encode(s.Home.Latitude, s.Home.Longitude, precision)
}

// Clone returns a deep copy.
func (s *AlertSubscription) Clone() *AlertSubscription {
	if s == nil {
		return nil
	}
	c := *s
	if s.Home != nil {
		h := *s.Home
		c.Home = &h
	}
	return &c
}

func (s *AlertSubscription) UnmarshalJSON(data []byte) error {
	type subscriptionAlias AlertSubscription
	var a subscriptionAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*s = AlertSubscription(a)
	s.Normalize()
	return nil
}
