package entities

import (
	"errors"
	"math"
)

// ErrInvalidLocation is returned for coordinates outside the WGS84 range.
var ErrInvalidLocation = errors.New("location out of range")

// Location represents a geographic coordinate pair (latitude/longitude) in
// decimal degrees.
//
// Go Learning Note — Value Types vs Reference Types:
// Location is a small, immutable data holder passed by value. Optional
// locations (a subscriber without a home) use *Location so that "absent" is
// distinguishable from the (0, 0) point in the Gulf of Guinea.
type Location struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// NewLocation creates a Location value from latitude and longitude.
func NewLocation(lat, lng float64) Location {
	return Location{
		Latitude:  lat,
		Longitude: lng,
	}
}

// Validate checks the latitude and longitude ranges.
func (l Location) Validate() error {
	if math.IsNaN(l.Latitude) || math.IsNaN(l.Longitude) {
		return ErrInvalidLocation
	}
	if l.Latitude < -90 || l.Latitude > 90 || l.Longitude < -180 || l.Longitude > 180 {
		return ErrInvalidLocation
	}
	return nil
}
