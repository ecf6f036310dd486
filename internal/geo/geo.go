package geo

import "math"

// EarthRadiusMeters is Earth's mean radius
const EarthRadiusMeters = 6371000.0

// DistanceMeters calculates the great-circle distance between two GPS
// coordinates in meters using the Haversine formula
func DistanceMeters(lat1, lng1, lat2, lng2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLng/2)*math.Sin(deltaLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c
}

// IsWithinRadius reports whether two points are at most radiusMeters apart.
// Used by both the dwell tracker (50m) and the drop-off QR check (100m) —
// same primitive, different thresholds.
func IsWithinRadius(lat1, lng1, lat2, lng2, radiusMeters float64) bool {
	return DistanceMeters(lat1, lng1, lat2, lng2) <= radiusMeters
}
