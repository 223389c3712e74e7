package reconcile

import (
	"context"

	"go.uber.org/zap"

	"github.com/fooddata/fhrs-reconcile/internal/model"
)

// Result is the output of one reconciliation pass.
type Result struct {
	Links []model.Link

	ByObject map[model.OSMRef][]model.Link
	ByFHRSID map[int64][]model.Link

	ObjectStates        map[model.OSMRef]model.OSMState
	EstablishmentStates map[int64]model.FHRSState
}

// ObjectState returns the state for a ref, defaulting to unmatched for
// objects the pass never saw.
func (r *Result) ObjectState(ref model.OSMRef) model.OSMState {
	if state, ok := r.ObjectStates[ref]; ok {
		return state
	}
	return model.OSMUnmatched
}

// Run executes a full pass over the snapshot: parse identifiers, build the
// edge set, classify both sides. The classification phase only starts once
// the edge set is complete; a state depends on an object's entire edge set,
// so there is no streaming variant.
func Run(ctx context.Context, snap *Snapshot) (*Result, error) {
	log := zap.L().With(zap.String("component", "reconcile"))

	if err := snap.ParseIdentifiers(ctx); err != nil {
		return nil, err
	}

	res := &Result{
		Links:               BuildLinks(snap),
		ByObject:            make(map[model.OSMRef][]model.Link),
		ByFHRSID:            make(map[int64][]model.Link),
		ObjectStates:        make(map[model.OSMRef]model.OSMState, len(snap.Objects)),
		EstablishmentStates: make(map[int64]model.FHRSState, len(snap.Establishments)),
	}
	for _, link := range res.Links {
		res.ByObject[link.OSM] = append(res.ByObject[link.OSM], link)
		if link.Found {
			res.ByFHRSID[link.FHRSID] = append(res.ByFHRSID[link.FHRSID], link)
		}
	}

	for _, obj := range snap.Objects {
		res.ObjectStates[obj.Ref] = ClassifyObject(res.ByObject[obj.Ref])
	}
	for _, est := range snap.Establishments {
		res.EstablishmentStates[est.FHRSID] = ClassifyEstablishment(
			res.ByFHRSID[est.FHRSID], est.HasLocation())
	}

	log.Info("reconciliation pass complete",
		zap.Int("objects", len(snap.Objects)),
		zap.Int("establishments", len(snap.Establishments)),
		zap.Int("links", len(res.Links)),
	)
	return res, nil
}

// StateCounts summarises a result for logging and the reconcile command.
func (r *Result) StateCounts() (map[model.OSMState]int, map[model.FHRSState]int) {
	osm := make(map[model.OSMState]int, len(model.OSMStates))
	for _, state := range r.ObjectStates {
		osm[state]++
	}
	fhrs := make(map[model.FHRSState]int, len(model.FHRSStates))
	for _, state := range r.EstablishmentStates {
		fhrs[state]++
	}
	return osm, fhrs
}
