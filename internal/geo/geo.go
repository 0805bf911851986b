package geo

import (
	"math"
	"strconv"
	"strings"
)

// earthRadiusMeters is the mean Earth radius used by the haversine formula
const earthRadiusMeters = 6371000.0

// Bounding box for coordinates the directory will trust. Activities are all
// in and around London; anything outside this box is a data-entry mistake
// (swapped columns, degrees/minutes confusion) and is treated as absent.
const (
	londonMinLat  = 51.2
	londonMaxLat  = 51.7
	londonMinLong = -0.5
	londonMaxLong = 0.3
)

// DistanceMeters returns the great-circle distance in meters between two
// points given in decimal degrees. Inputs must be real coordinates; callers
// are responsible for never passing unknown/missing values.
func DistanceMeters(lat1, long1, lat2, long2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLong := (long2 - long1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLong/2)*math.Sin(deltaLong/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// IsPlausibleLondonCoordinate reports whether the pair lies inside the
// supported region's bounding box
func IsPlausibleLondonCoordinate(lat, long float64) bool {
	return lat >= londonMinLat && lat < londonMaxLat &&
		long >= londonMinLong && long <= londonMaxLong
}

// ParsePlausibleLondonCoordinate parses spreadsheet-entered coordinate cells
// and accepts them only when both parse as numbers inside the regional
// bounding box. Any non-numeric or out-of-range input returns false, never an
// error; implausible values fall through to the postcode-derived path.
func ParsePlausibleLondonCoordinate(latCell, longCell string) (float64, float64, bool) {
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(latCell), 64)
	long, errLong := strconv.ParseFloat(strings.TrimSpace(longCell), 64)
	if errLat != nil || errLong != nil {
		return 0, 0, false
	}
	if !IsPlausibleLondonCoordinate(lat, long) {
		return 0, 0, false
	}
	return lat, long, true
}
