package geo

import (
	"math"
	"testing"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name      string
		lat       float64
		lng       float64
		precision int
		want      string
	}{
		{
			name:      "San Francisco",
			lat:       37.7749,
			lng:       -122.4194,
			precision: 6,
			want:      "9q8yyk",
		},
		{
			name:      "New York",
			lat:       40.7128,
			lng:       -74.0060,
			precision: 6,
			want:      "dr5reg",
		},
		{
			name:      "London",
			lat:       51.5074,
			lng:       -0.1278,
			precision: 6,
			want:      "gcpvj0",
		},
		{
			name:      "Penang",
			lat:       5.3556,
			lng:       100.3025,
			precision: 5,
			want:      "w0zq6",
		},
		{
			name:      "Clamped precision",
			lat:       37.7749,
			lng:       -122.4194,
			precision: 20,
			want:      Encode(37.7749, -122.4194, MaxPrecision),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Encode(tt.lat, tt.lng, tt.precision)
			if got != tt.want {
				t.Errorf("Encode() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEncode_DefaultPrecision(t *testing.T) {
	got := Encode(37.7749, -122.4194, 0)
	if len(got) != DefaultPrecision {
		t.Errorf("len(Encode()) = %d, want %d", len(got), DefaultPrecision)
	}
	if got[:6] != "9q8yyk" {
		t.Errorf("Encode() prefix = %v, want 9q8yyk", got[:6])
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name      string
		hash      string
		wantLat   float64
		wantLng   float64
		tolerance float64
	}{
		{
			name:      "San Francisco",
			hash:      "9q8yyk",
			wantLat:   37.7749,
			wantLng:   -122.4194,
			tolerance: 0.01,
		},
		{
			name:      "New York",
			hash:      "dr5reg",
			wantLat:   40.7128,
			wantLng:   -74.0060,
			tolerance: 0.01,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotLat, gotLng := Decode(tt.hash)
			if math.Abs(gotLat-tt.wantLat) > tt.tolerance {
				t.Errorf("Decode() lat = %v, want %v", gotLat, tt.wantLat)
			}
			if math.Abs(gotLng-tt.wantLng) > tt.tolerance {
				t.Errorf("Decode() lng = %v, want %v", gotLng, tt.wantLng)
			}
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	points := []struct {
		lat float64
		lng float64
	}{
		{37.7749, -122.4194},
		{40.7128, -74.0060},
		{51.5074, -0.1278},
		{-33.8688, 151.2093},
		{35.6762, 139.6503},
		{5.3556, 100.3025},
		{89.9999, 179.9999},
		{-89.9999, -179.9999},
	}

	for precision := 1; precision <= MaxPrecision; precision++ {
		latErr, lngErr := ErrorBounds(precision)
		for _, p := range points {
			hash := Encode(p.lat, p.lng, precision)
			if len(hash) != precision {
				t.Fatalf("len(Encode(%v, %v, %d)) = %d", p.lat, p.lng, precision, len(hash))
			}
			gotLat, gotLng := Decode(hash)
			if math.Abs(gotLat-p.lat) > latErr {
				t.Errorf("precision %d: lat %v decoded to %v, error bound %v", precision, p.lat, gotLat, latErr)
			}
			if math.Abs(gotLng-p.lng) > lngErr {
				t.Errorf("precision %d: lng %v decoded to %v, error bound %v", precision, p.lng, gotLng, lngErr)
			}
			if !DecodeBounds(hash).Contains(p.lat, p.lng) {
				t.Errorf("precision %d: cell %s does not contain (%v, %v)", precision, hash, p.lat, p.lng)
			}
		}
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		hash string
		want bool
	}{
		{"w0zq6", true},
		{"", false},
		{"w0zga", false},
		{"W0ZGH", false},
	}
	for _, tt := range tests {
		if got := Valid(tt.hash); got != tt.want {
			t.Errorf("Valid(%q) = %v, want %v", tt.hash, got, tt.want)
		}
	}
}

func BenchmarkEncode(b *testing.B) {
	for i := 0; i < b.N; i++ {
		Encode(37.7749, -122.4194, DefaultPrecision)
	}
}

func BenchmarkDecode(b *testing.B) {
	for i := 0; i < b.N; i++ {
		Decode("9q8yyk")
	}
}
