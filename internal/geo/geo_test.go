package geo

import (
	"math"
	"testing"
)

func TestDistanceMetersKnownPair(t *testing.T) {
	// Two central-London points on the same meridian, 0.00899 degrees of
	// latitude apart, which is almost exactly 1000 m of arc
	distance := DistanceMeters(51.5000, -0.1200, 51.50899, -0.1200)

	if math.Abs(distance-1000) > 10 {
		t.Errorf("Expected ~1000m within 1%%, got %.2fm", distance)
	}
}

func TestDistanceMetersZero(t *testing.T) {
	distance := DistanceMeters(51.5, -0.12, 51.5, -0.12)
	if distance != 0 {
		t.Errorf("Distance between identical points should be 0, got %f", distance)
	}
}

func TestDistanceMetersSymmetric(t *testing.T) {
	forward := DistanceMeters(51.46, -0.24, 51.51, -0.13)
	backward := DistanceMeters(51.51, -0.13, 51.46, -0.24)
	if math.Abs(forward-backward) > 1e-6 {
		t.Errorf("Distance should be symmetric: %f vs %f", forward, backward)
	}
}

func TestIsPlausibleLondonCoordinate(t *testing.T) {
	tests := []struct {
		name string
		lat  float64
		long float64
		want bool
	}{
		{"central London", 51.4613, -0.2422, true},
		{"north of region", 52.5, -0.2, false},
		{"south of region", 50.9, -0.2, false},
		{"too far west", 51.5, -1.2, false},
		{"too far east", 51.5, 0.9, false},
		{"equator zero pair", 0, 0, false},
	}

	for _, tt := range tests {
		if got := IsPlausibleLondonCoordinate(tt.lat, tt.long); got != tt.want {
			t.Errorf("%s: IsPlausibleLondonCoordinate(%v, %v) = %v, want %v",
				tt.name, tt.lat, tt.long, got, tt.want)
		}
	}
}

func TestParsePlausibleLondonCoordinate(t *testing.T) {
	lat, long, ok := ParsePlausibleLondonCoordinate("51.4613", "-0.2422")
	if !ok {
		t.Fatal("Expected valid Roehampton coordinate to parse")
	}
	if lat != 51.4613 || long != -0.2422 {
		t.Errorf("Parsed (%v, %v), want (51.4613, -0.2422)", lat, long)
	}

	invalid := []struct {
		name string
		lat  string
		long string
	}{
		{"non-numeric lat", "fifty-one", "-0.24"},
		{"non-numeric long", "51.5", "west"},
		{"empty cells", "", ""},
		{"out of region", "48.8566", "2.3522"},
		{"swapped columns", "-0.2422", "51.4613"},
	}
	for _, tt := range invalid {
		if _, _, ok := ParsePlausibleLondonCoordinate(tt.lat, tt.long); ok {
			t.Errorf("%s: expected (%q, %q) to be rejected", tt.name, tt.lat, tt.long)
		}
	}
}
