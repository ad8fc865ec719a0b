package geo

import (
	"fmt"
	"math"
)

// BoundingBox is a viewport normalized so that Min <= Max on both axes.
type BoundingBox struct {
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
}

// NormalizeBounds builds a BoundingBox from two corners given as
// [lat1, lng1, lat2, lng2]. The corners may arrive in either diagonal order.
func NormalizeBounds(bounds []float64) (BoundingBox, error) {
	if len(bounds) != 4 {
		return BoundingBox{}, fmt.Errorf("bounds must have 4 values, got %d", len(bounds))
	}
	for _, v := range bounds {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return BoundingBox{}, fmt.Errorf("bounds must be finite numbers")
		}
	}
	lat1, lng1, lat2, lng2 := bounds[0], bounds[1], bounds[2], bounds[3]
	return BoundingBox{
		MinLat: math.Min(lat1, lat2),
		MaxLat: math.Max(lat1, lat2),
		MinLng: math.Min(lng1, lng2),
		MaxLng: math.Max(lng1, lng2),
	}, nil
}

// Contains reports whether the point lies inside the box (edges inclusive).
func (b BoundingBox) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}
