package geo

import "math"

// VectorDim is the dimension of a stored location vector.
const VectorDim = 3

// ToVector maps latitude/longitude in degrees onto the unit sphere (ECEF).
// Euclidean distance between two such points grows with their great-circle
// distance, so the smallest L2 distance is the nearest location.
func ToVector(latDeg, lngDeg float64) []float32 {
	lat := latDeg * math.Pi / 180
	lng := lngDeg * math.Pi / 180
	cosLat := math.Cos(lat)
	return []float32{
		float32(cosLat * math.Cos(lng)),
		float32(cosLat * math.Sin(lng)),
		float32(math.Sin(lat)),
	}
}

// ValidateCoordinates reports whether lat is in [-90,90] and lng in
// [-180,180]. NaN is rejected.
func ValidateCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
