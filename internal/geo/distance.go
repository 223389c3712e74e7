// Package geo provides the small amount of spherical geometry the engine
// needs: geodesic point distance and bounding boxes.
package geo

import (
	"math"

	"github.com/fooddata/fhrs-reconcile/internal/model"
)

const earthRadiusMeters = 6371000.0

// DistanceMeters returns the haversine great-circle distance between two
// points in meters. Haversine on a spherical earth is within ~0.5% of the
// spheroidal distance, which is ample for link-consistency thresholds, and
// unlike planar approximations it stays correct at all latitudes.
func DistanceMeters(a, b model.Point) float64 {
	latA := a.Lat * math.Pi / 180
	latB := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := hav(dLat) + math.Cos(latA)*math.Cos(latB)*hav(dLon)
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}

func hav(angle float64) float64 {
	return (1 - math.Cos(angle)) / 2
}

// BBox is a geographic bounding box in WGS84.
type BBox struct {
	MinLon float64 `json:"min_lon"`
	MinLat float64 `json:"min_lat"`
	MaxLon float64 `json:"max_lon"`
	MaxLat float64 `json:"max_lat"`
}

// Contains reports whether the point lies within the box (edges inclusive).
func (b BBox) Contains(p model.Point) bool {
	return p.Lon >= b.MinLon && p.Lon <= b.MaxLon &&
		p.Lat >= b.MinLat && p.Lat <= b.MaxLat
}

// Valid reports whether the box is well-formed and within WGS84 range.
func (b BBox) Valid() bool {
	return b.MinLon <= b.MaxLon && b.MinLat <= b.MaxLat &&
		b.MinLon >= -180 && b.MaxLon <= 180 &&
		b.MinLat >= -90 && b.MaxLat <= 90
}
