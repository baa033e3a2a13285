package utils

import (
	"math"
)

const (
	// EarthRadiusKm is the mean radius of the sphere every distance in the
	// system is measured on.
	EarthRadiusKm = 6371.0
)

// HaversineDistance calculates the great-circle distance between two points
// in kilometers. The result is never rounded; callers compare it directly
// against radii.
func HaversineDistance(lat1, lng1, lat2, lng2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLng/2)*math.Sin(deltaLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

// WithinRadius reports whether two points are at most radiusKm apart. The
// boundary is inclusive.
func WithinRadius(lat1, lng1, lat2, lng2, radiusKm float64) (distanceKm float64, ok bool) {
	distanceKm = HaversineDistance(lat1, lng1, lat2, lng2)
	return distanceKm, distanceKm <= radiusKm
}

// RoundTo rounds v to the given number of decimal places. It is meant for
// display only.
func RoundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
