package boundary

import (
	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"go.uber.org/zap"
)

// polygonOf converts a shapefile polygon to an orb.MultiPolygon. Every
// part becomes its own single-ring polygon; ring winding is not
// inspected, holes are rare in district boundaries and containment
// checks tolerate treating them as islands.
func polygonOf(p *shp.Polygon) orb.MultiPolygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	var mp orb.MultiPolygon
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}

		ring := make(orb.Ring, 0, end-start)
		for j := start; j < end; j++ {
			ring = append(ring, orb.Point{p.Points[j].X, p.Points[j].Y})
		}
		if len(ring) < 4 {
			zap.L().Debug("skipping degenerate boundary ring", zap.Int32("part", i))
			continue
		}
		mp = append(mp, orb.Polygon{ring})
	}
	if len(mp) == 0 {
		return nil
	}
	return mp
}

// encodeWKB converts an orb.MultiPolygon to EWKB bytes with SRID 4326
// for storage.
func encodeWKB(mp orb.MultiPolygon) ([]byte, error) {
	g := geom.NewMultiPolygon(geom.XY).SetSRID(4326)
	for _, poly := range mp {
		gp := geom.NewPolygon(geom.XY)
		for _, ring := range poly {
			flat := make([]float64, 0, len(ring)*2)
			for _, pt := range ring {
				flat = append(flat, pt.X(), pt.Y())
			}
			if err := gp.Push(geom.NewLinearRingFlat(geom.XY, flat)); err != nil {
				return nil, eris.Wrap(err, "boundary: build ring")
			}
		}
		if err := g.Push(gp); err != nil {
			return nil, eris.Wrap(err, "boundary: build polygon")
		}
	}

	data, err := ewkb.Marshal(g, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "boundary: encode WKB")
	}
	return data, nil
}

// FromWKB rebuilds a district from its stored EWKB outline.
func FromWKB(code, name string, data []byte) (District, error) {
	g, err := ewkb.Unmarshal(data)
	if err != nil {
		return District{}, eris.Wrapf(err, "boundary: decode WKB for %s", code)
	}
	gmp, ok := g.(*geom.MultiPolygon)
	if !ok {
		return District{}, eris.Errorf("boundary: %s: expected multipolygon, got %T", code, g)
	}

	var mp orb.MultiPolygon
	for i := 0; i < gmp.NumPolygons(); i++ {
		gp := gmp.Polygon(i)
		poly := make(orb.Polygon, 0, gp.NumLinearRings())
		for j := 0; j < gp.NumLinearRings(); j++ {
			coords := gp.LinearRing(j).Coords()
			ring := make(orb.Ring, 0, len(coords))
			for _, c := range coords {
				ring = append(ring, orb.Point{c.X(), c.Y()})
			}
			poly = append(poly, ring)
		}
		mp = append(mp, poly)
	}

	return District{Code: code, Name: name, Outline: mp, WKB: data}, nil
}
