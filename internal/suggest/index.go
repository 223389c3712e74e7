package suggest

import (
	"math"

	"github.com/fooddata/fhrs-reconcile/internal/geo"
	"github.com/fooddata/fhrs-reconcile/internal/model"
)

// cellSizeDegrees is the grid cell edge, roughly 550m of latitude, so a
// 250m radius query touches at most a 2x2 neighbourhood away from cell
// boundaries and 3x3 near them.
const cellSizeDegrees = 0.005

// metersPerDegreeLat is close enough for converting a search radius into a
// cell span; the exact distance filter happens per candidate afterwards.
const metersPerDegreeLat = 111320.0

type cellKey struct {
	row, col int32
}

// cellIndex buckets located establishments into fixed lat/lon grid cells
// for radius queries without a database round trip.
type cellIndex struct {
	cells map[cellKey][]*model.Establishment
}

func newCellIndex(establishments []*model.Establishment) *cellIndex {
	idx := &cellIndex{cells: make(map[cellKey][]*model.Establishment)}
	for _, est := range establishments {
		if est.Location == nil {
			continue
		}
		key := keyFor(*est.Location)
		idx.cells[key] = append(idx.cells[key], est)
	}
	return idx
}

func keyFor(p model.Point) cellKey {
	return cellKey{
		row: int32(math.Floor(p.Lat / cellSizeDegrees)),
		col: int32(math.Floor(p.Lon / cellSizeDegrees)),
	}
}

// within returns all indexed establishments no farther than radiusMeters
// from the center, in deterministic cell-then-insertion order.
func (idx *cellIndex) within(center model.Point, radiusMeters float64) []*model.Establishment {
	latSpan := radiusMeters / metersPerDegreeLat
	lonScale := math.Cos(center.Lat * math.Pi / 180)
	if lonScale < 0.01 {
		lonScale = 0.01
	}
	lonSpan := radiusMeters / (metersPerDegreeLat * lonScale)

	minKey := keyFor(model.Point{Lat: center.Lat - latSpan, Lon: center.Lon - lonSpan})
	maxKey := keyFor(model.Point{Lat: center.Lat + latSpan, Lon: center.Lon + lonSpan})

	var out []*model.Establishment
	for row := minKey.row; row <= maxKey.row; row++ {
		for col := minKey.col; col <= maxKey.col; col++ {
			for _, est := range idx.cells[cellKey{row, col}] {
				if geo.DistanceMeters(center, *est.Location) <= radiusMeters {
					out = append(out, est)
				}
			}
		}
	}
	return out
}
