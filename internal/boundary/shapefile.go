// Package boundary imports administrative district outlines from an
// ONS Local Authority Districts shapefile and resolves which district
// a point falls in. The shapefile must already be in WGS84; the ONS
// generalised downloads offer that projection directly.
package boundary

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// District is one administrative district: its ONS code, display name,
// outline for in-memory containment and the same outline as EWKB for
// storage.
type District struct {
	Code    string
	Name    string
	Outline orb.MultiPolygon
	WKB     []byte

	bound orb.Bound
}

// NewDistrict builds a district from an outline, encoding the stored
// WKB form alongside.
func NewDistrict(code, name string, outline orb.MultiPolygon) (District, error) {
	wkb, err := encodeWKB(outline)
	if err != nil {
		return District{}, err
	}
	return District{
		Code:    code,
		Name:    name,
		Outline: outline,
		WKB:     wkb,
		bound:   outline.Bound(),
	}, nil
}

// LoadShapefile reads districts from a shapefile. fieldPrefix selects
// the attribute vintage, e.g. "LAD21" reads LAD21CD and LAD21NM.
func LoadShapefile(path, fieldPrefix string) ([]District, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "boundary: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	codeIdx, nameIdx := -1, -1
	for i, f := range reader.Fields() {
		name := strings.TrimRight(f.String(), "\x00")
		switch strings.ToUpper(name) {
		case strings.ToUpper(fieldPrefix) + "CD":
			codeIdx = i
		case strings.ToUpper(fieldPrefix) + "NM":
			nameIdx = i
		}
	}
	if codeIdx < 0 || nameIdx < 0 {
		return nil, eris.Errorf("boundary: shapefile has no %sCD/%sNM fields", fieldPrefix, fieldPrefix)
	}

	var districts []District
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok {
			skipped++
			continue
		}
		outline := polygonOf(poly)
		if outline == nil {
			skipped++
			continue
		}
		code := strings.TrimSpace(strings.TrimRight(reader.Attribute(codeIdx), "\x00"))
		name := strings.TrimSpace(strings.TrimRight(reader.Attribute(nameIdx), "\x00"))
		d, err := NewDistrict(code, name, outline)
		if err != nil {
			return nil, err
		}
		districts = append(districts, d)
	}

	if skipped > 0 {
		zap.L().Debug("boundary: skipped shapefile records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	return districts, nil
}
