package boundary

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/fooddata/fhrs-reconcile/internal/model"
	"github.com/fooddata/fhrs-reconcile/internal/stats"
)

// Set answers point-in-district queries over a loaded boundary set.
type Set struct {
	districts []District
}

// NewSet builds a Set. Districts with a nil outline are ignored.
func NewSet(districts []District) *Set {
	kept := make([]District, 0, len(districts))
	for _, d := range districts {
		if d.Outline == nil {
			continue
		}
		if d.bound.IsZero() {
			d.bound = d.Outline.Bound()
		}
		kept = append(kept, d)
	}
	return &Set{districts: kept}
}

// CodeFor returns the district code containing the point, or "" when no
// district does. The bounding box check rejects most candidates before
// the exact test.
func (s *Set) CodeFor(p model.Point) string {
	pt := orb.Point{p.Lon, p.Lat}
	for _, d := range s.districts {
		if !d.bound.Contains(pt) {
			continue
		}
		if planar.MultiPolygonContains(d.Outline, pt) {
			return d.Code
		}
	}
	return ""
}

// Assign resolves district membership for every located object and
// establishment, producing the input the aggregator counts from.
// Unlocated records are left out entirely.
func (s *Set) Assign(objects []*model.OSMObject, establishments []*model.Establishment) stats.Assignments {
	asg := stats.Assignments{
		Objects:        make(map[model.OSMRef]string, len(objects)),
		Establishments: make(map[int64]string, len(establishments)),
	}
	for _, obj := range objects {
		if obj.Location == nil {
			continue
		}
		if code := s.CodeFor(*obj.Location); code != "" {
			asg.Objects[obj.Ref] = code
		}
	}
	for _, est := range establishments {
		if est.Location == nil {
			continue
		}
		if code := s.CodeFor(*est.Location); code != "" {
			asg.Establishments[est.FHRSID] = code
		}
	}
	return asg
}
