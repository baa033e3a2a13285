// Package geo implements geohash encoding/decoding and the covering-box
// construction used to resolve "who lives near this incident" with ordered
// range scans over a geohash-keyed subscriber directory.
//
// Go Learning Note — What is a Geohash?
// A geohash is a way to encode a latitude/longitude pair into a short string.
// The key property is that nearby locations share a common prefix, so a
// rectangle of the globe maps to a contiguous range of sorted keys. That is
// what lets a plain ordered index answer proximity queries.
//
// Precision determines the cell size:
//
//	1 → ~5000 km    4 → ~39 km     7 → ~153 m    10 → ~1.2 m
//	2 → ~1250 km    5 → ~5 km      8 → ~19 m     11 → ~15 cm
//	3 → ~156 km     6 → ~1.2 km    9 → ~2.4 m    12 → ~1.9 cm
//
// Subscriber keys are stored at DefaultPrecision (10). Queries use coarser
// prefixes derived from the search radius.
package geo

import (
	"strings"
)

const (
	// base32 is the geohash character set. 'a', 'i', 'l' and 'o' are excluded
	// to avoid confusion with digits.
	base32 = "0123456789bcdefghjkmnpqrstuvwxyz"

	// BitsPerChar is the number of interleaved bits one character encodes.
	BitsPerChar = 5

	// DefaultPrecision is the key length stored for every subscription.
	DefaultPrecision = 10

	// MaxPrecision is the longest hash Encode produces.
	MaxPrecision = 12
)

var base32Map = map[byte]int{}

func init() {
	for i := 0; i < len(base32); i++ {
		base32Map[base32[i]] = i
	}
}

// Box is a geohash cell in degrees.
type Box struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// Center returns the midpoint of the box.
func (b Box) Center() (lat, lng float64) {
	return (b.MinLat + b.MaxLat) / 2, (b.MinLng + b.MaxLng) / 2
}

// Contains reports whether the point lies inside the box (edges inclusive).
func (b Box) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

// Encode converts latitude and longitude to a geohash string with given
// precision. Precision 0 (or below) selects DefaultPrecision; anything above
// MaxPrecision is clamped.
//
// Algorithm overview (binary interleaving):
//  1. Start with the full range: lat [-90, 90], lng [-180, 180]
//  2. Alternate between longitude (even bits) and latitude (odd bits)
//  3. For each step, bisect the range and set bit=1 if value >= midpoint
//  4. Every 5 bits are encoded as one base32 character
func Encode(lat, lng float64, precision int) string {
	if precision <= 0 {
		precision = DefaultPrecision
	}
	if precision > MaxPrecision {
		precision = MaxPrecision
	}

	minLat, maxLat := -90.0, 90.0
	minLng, maxLng := -180.0, 180.0

	var hash strings.Builder
	hash.Grow(precision)
	isEven := true
	bit := 0
	ch := 0

	for hash.Len() < precision {
		if isEven {
			mid := (minLng + maxLng) / 2
			if lng >= mid {
				ch |= 1 << (4 - bit)
				minLng = mid
			} else {
				maxLng = mid
			}
		} else {
			mid := (minLat + maxLat) / 2
			if lat >= mid {
				ch |= 1 << (4 - bit)
				minLat = mid
			} else {
				maxLat = mid
			}
		}
		isEven = !isEven
		bit++
		if bit == BitsPerChar {
			hash.WriteByte(base32[ch])
			bit = 0
			ch = 0
		}
	}

	return hash.String()
}

// DecodeBounds replays the binary subdivision of hash and returns the cell it
// names. Characters outside the alphabet are skipped.
func DecodeBounds(hash string) Box {
	b := Box{MinLat: -90, MaxLat: 90, MinLng: -180, MaxLng: 180}
	isEven := true

	for i := 0; i < len(hash); i++ {
		cd, ok := base32Map[hash[i]]
		if !ok {
			continue
		}
		for j := BitsPerChar - 1; j >= 0; j-- {
			bit := (cd >> j) & 1
			if isEven {
				mid := (b.MinLng + b.MaxLng) / 2
				if bit == 1 {
					b.MinLng = mid
				} else {
					b.MaxLng = mid
				}
			} else {
				mid := (b.MinLat + b.MaxLat) / 2
				if bit == 1 {
					b.MinLat = mid
				} else {
					b.MaxLat = mid
				}
			}
			isEven = !isEven
		}
	}
	return b
}

// Decode converts a geohash string back to the center latitude and longitude
// of the encoded cell.
func Decode(hash string) (lat, lng float64) {
	return DecodeBounds(hash).Center()
}

// ErrorBounds returns the maximum distance in degrees between a point and the
// center of its cell at the given precision. Encode followed by Decode is
// guaranteed to land within these bounds.
func ErrorBounds(precision int) (latErr, lngErr float64) {
	totalBits := precision * BitsPerChar
	lngBits := (totalBits + 1) / 2
	latBits := totalBits / 2
	return 90 / float64(uint64(1)<<latBits), 180 / float64(uint64(1)<<lngBits)
}

// Valid reports whether hash is a non-empty string over the geohash alphabet.
func Valid(hash string) bool {
	if hash == "" {
		return false
	}
	for i := 0; i < len(hash); i++ {
		if _, ok := base32Map[hash[i]]; !ok {
			return false
		}
	}
	return true
}
