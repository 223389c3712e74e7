// Package reconcile builds the OSM<->FHRS linkage for a dataset snapshot
// and classifies every object and establishment against it. A pass is a
// pure batch computation: the same two snapshots always produce identical
// output.
package reconcile

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/fooddata/fhrs-reconcile/internal/ident"
	"github.com/fooddata/fhrs-reconcile/internal/model"
)

// Snapshot is an immutable view of both datasets for one reconciliation
// pass. Objects and Establishments come from the latest full import; the
// engine never mutates them apart from filling the derived identifier
// fields on objects.
type Snapshot struct {
	Objects        []*model.OSMObject
	Establishments []*model.Establishment

	byFHRSID map[int64]*model.Establishment
}

// NewSnapshot indexes the establishment set and returns a snapshot ready
// for ParseIdentifiers and BuildLinks.
func NewSnapshot(objects []*model.OSMObject, establishments []*model.Establishment) *Snapshot {
	byID := make(map[int64]*model.Establishment, len(establishments))
	for _, est := range establishments {
		byID[est.FHRSID] = est
	}
	return &Snapshot{
		Objects:        objects,
		Establishments: establishments,
		byFHRSID:       byID,
	}
}

// Establishment resolves an FHRS ID against the snapshot.
func (s *Snapshot) Establishment(id int64) (*model.Establishment, bool) {
	est, ok := s.byFHRSID[id]
	return est, ok
}

// ParseIdentifiers fills FHRSIDs/FHRSIDsValid on every object from its raw
// fhrs:id tag. Objects are independent, so the work is fanned out across
// CPUs; output does not depend on scheduling.
func (s *Snapshot) ParseIdentifiers(ctx context.Context) error {
	workers := runtime.GOMAXPROCS(0)
	chunk := (len(s.Objects) + workers - 1) / workers
	if chunk == 0 {
		return nil
	}

	g, _ := errgroup.WithContext(ctx)
	for start := 0; start < len(s.Objects); start += chunk {
		start := start
		end := min(start+chunk, len(s.Objects))
		g.Go(func() error {
			for _, obj := range s.Objects[start:end] {
				obj.FHRSIDs, obj.FHRSIDsValid = ident.Parse(obj.FHRSIDsRaw)
			}
			return nil
		})
	}
	return g.Wait()
}
