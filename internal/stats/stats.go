// Package stats rolls per-object classification states up into
// per-district totals. District membership is resolved upstream by
// spatial containment; this package only counts.
package stats

import (
	"sort"

	"github.com/fooddata/fhrs-reconcile/internal/model"
	"github.com/fooddata/fhrs-reconcile/internal/reconcile"
)

// Assignments maps objects and establishments to administrative district
// codes. Entries for objects the result never saw are ignored, and an
// object absent from the map (or mapped to the empty code) counts toward
// no district at all.
type Assignments struct {
	Objects        map[model.OSMRef]string
	Establishments map[int64]string
}

// DistrictCounts holds per-state totals for one district.
type DistrictCounts struct {
	Code string                  `json:"code"`
	OSM  map[model.OSMState]int  `json:"osm"`
	FHRS map[model.FHRSState]int `json:"fhrs"`
}

// OSMTotal is the number of assigned objects in any state.
func (d DistrictCounts) OSMTotal() int {
	var n int
	for _, c := range d.OSM {
		n += c
	}
	return n
}

// FHRSTotal is the number of assigned establishments in any state.
func (d DistrictCounts) FHRSTotal() int {
	var n int
	for _, c := range d.FHRS {
		n += c
	}
	return n
}

// DistrictStats is the full aggregation, ordered by district code so the
// output is stable run to run.
type DistrictStats []DistrictCounts

// Aggregate counts each assigned object and establishment exactly once
// under its district. Assignments that reference nothing in the result are
// skipped rather than invented, so a stale membership table cannot inflate
// the totals.
func Aggregate(result *reconcile.Result, asg Assignments) DistrictStats {
	byCode := make(map[string]*DistrictCounts)
	counts := func(code string) *DistrictCounts {
		d, ok := byCode[code]
		if !ok {
			d = &DistrictCounts{
				Code: code,
				OSM:  make(map[model.OSMState]int),
				FHRS: make(map[model.FHRSState]int),
			}
			byCode[code] = d
		}
		return d
	}

	for ref, code := range asg.Objects {
		if code == "" {
			continue
		}
		state, ok := result.ObjectStates[ref]
		if !ok {
			continue
		}
		counts(code).OSM[state]++
	}
	for id, code := range asg.Establishments {
		if code == "" {
			continue
		}
		state, ok := result.EstablishmentStates[id]
		if !ok {
			continue
		}
		counts(code).FHRS[state]++
	}

	out := make(DistrictStats, 0, len(byCode))
	for _, d := range byCode {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
