package geo

import (
	"math"
	"sort"
	"strings"
)

const (
	// EarthRadiusMeters matches the sphere used by the haversine filter, so a
	// point the filter accepts is always inside the covering.
	EarthRadiusMeters = 6371000.0

	metersPerDegree = EarthRadiusMeters * math.Pi / 180

	// coveragePad widens the radius slightly to absorb float error at the edge
	// of the circle.
	coveragePad = 0.01
)

// KeyRange is an inclusive [Low, High] span of geohash keys. Both bounds use
// only the geohash alphabet and High is padded with 'z' to key precision, so
// the range holds under any collation that orders the alphabet the way bytes
// do, not only under byte comparison.
type KeyRange struct {
	Low  string `json:"low"`
	High string `json:"high"`
}

// Contains reports whether key falls inside the range.
func (r KeyRange) Contains(key string) bool {
	return key >= r.Low && key <= r.High
}

// CoveringBoxes returns at most nine key ranges whose union contains the
// DefaultPrecision key of every point within radiusMeters of the center. The
// union also contains points outside the circle; callers must re-check
// distance.
func CoveringBoxes(lat, lng, radiusMeters float64) []KeyRange {
	return CoveringBoxesAt(lat, lng, radiusMeters, DefaultPrecision)
}

// CoveringBoxesAt is CoveringBoxes for a directory whose keys are stored at
// keyPrecision characters.
//
// The construction samples the circle's bounding box on a 3x3 grid (center,
// edge midpoints, corners) and picks a prefix length whose cells are at least
// as large as the grid spacing on both axes. Every cell that intersects the
// bounding box therefore contains a sample, and each sample's cell becomes one
// key range.
func CoveringBoxesAt(lat, lng, radiusMeters float64, keyPrecision int) []KeyRange {
	if keyPrecision <= 0 {
		keyPrecision = DefaultPrecision
	}
	if keyPrecision > MaxPrecision {
		keyPrecision = MaxPrecision
	}
	if radiusMeters < 0 || math.IsNaN(radiusMeters) {
		radiusMeters = 0
	}

	r := radiusMeters * (1 + coveragePad)
	latDelta := r / metersPerDegree
	north := math.Min(90, lat+latDelta)
	south := math.Max(-90, lat-latDelta)
	lngDelta := math.Max(longitudeDegrees(r, north), longitudeDegrees(r, south))

	bits := queryBits(latDelta, lngDelta, keyPrecision*BitsPerChar)
	if bits <= 0 {
		return []KeyRange{{Low: base32[:1], High: strings.Repeat(base32[len(base32)-1:], keyPrecision)}}
	}
	precision := (bits + BitsPerChar - 1) / BitsPerChar

	west := WrapLongitude(lng - lngDelta)
	east := WrapLongitude(lng + lngDelta)
	samples := [9][2]float64{
		{lat, lng}, {lat, west}, {lat, east},
		{north, lng}, {north, west}, {north, east},
		{south, lng}, {south, west}, {south, east},
	}

	seen := make(map[KeyRange]struct{}, len(samples))
	ranges := make([]KeyRange, 0, len(samples))
	for _, s := range samples {
		kr := prefixRange(Encode(s[0], s[1], precision), bits, keyPrecision)
		if _, dup := seen[kr]; dup {
			continue
		}
		seen[kr] = struct{}{}
		ranges = append(ranges, kr)
	}

	sort.Slice(ranges, func(i, j int) bool {
		if ranges[i].Low != ranges[j].Low {
			return ranges[i].Low < ranges[j].Low
		}
		return ranges[i].High < ranges[j].High
	})
	return ranges
}

// queryBits picks the number of interleaved bits for the query prefix. The
// result keeps cell height >= latDelta and cell width >= lngDelta and never
// exceeds maxBits. Zero means the whole globe.
func queryBits(latDelta, lngDelta float64, maxBits int) int {
	latBits := maxBits
	if latDelta > 0 {
		latBits = int(math.Floor(math.Log2(180 / latDelta)))
	}
	lngBits := maxBits
	if lngDelta > 0 {
		lngBits = int(math.Floor(math.Log2(360 / lngDelta)))
	}

	// Longitude takes the first bit, so a total of 2n holds n of each and
	// 2n-1 holds n longitude bits with n-1 latitude bits.
	bits := min(latBits*2, lngBits*2-1, maxBits)
	if bits < 1 {
		return 0
	}
	return bits
}

// prefixRange truncates hash to its first bits and returns the span of
// keyPrecision-long keys that share that bit prefix.
func prefixRange(hash string, bits, keyPrecision int) KeyRange {
	precision := (bits + BitsPerChar - 1) / BitsPerChar
	if len(hash) < precision {
		return KeyRange{Low: hash, High: padHigh(hash, keyPrecision)}
	}
	base := hash[:precision-1]
	last := base32Map[hash[precision-1]]
	unused := BitsPerChar - (bits - len(base)*BitsPerChar)

	start := (last >> unused) << unused
	end := start + 1<<unused
	return KeyRange{
		Low:  base + string(base32[start]),
		High: padHigh(base+string(base32[end-1]), keyPrecision),
	}
}

// padHigh extends prefix with the last alphabet character up to
// keyPrecision, giving the greatest key that starts with prefix.
func padHigh(prefix string, keyPrecision int) string {
	if n := keyPrecision - len(prefix); n > 0 {
		return prefix + strings.Repeat(base32[len(base32)-1:], n)
	}
	return prefix
}

// longitudeDegrees converts a distance along the parallel at lat into degrees
// of longitude, saturating at a full turn near the poles.
func longitudeDegrees(meters, lat float64) float64 {
	perDegree := math.Cos(lat*math.Pi/180) * metersPerDegree
	if perDegree < 1e-12 {
		if meters > 0 {
			return 360
		}
		return 0
	}
	return math.Min(360, meters/perDegree)
}

// WrapLongitude folds lng into [-180, 180].
func WrapLongitude(lng float64) float64 {
	if lng >= -180 && lng <= 180 {
		return lng
	}
	adjusted := lng + 180
	if adjusted > 0 {
		return math.Mod(adjusted, 360) - 180
	}
	return 180 - math.Mod(-adjusted, 360)
}
