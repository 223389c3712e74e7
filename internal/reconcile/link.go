package reconcile

import (
	"github.com/fooddata/fhrs-reconcile/internal/geo"
	"github.com/fooddata/fhrs-reconcile/internal/model"
	"github.com/fooddata/fhrs-reconcile/internal/normalize"
)

// BuildLinks resolves every parsed identifier on every object against the
// establishment set and returns the full edge list, ordered by object then
// by tag position. It performs no classification; an object's state is a
// function of its whole edge set, which only exists once this completes.
func BuildLinks(snap *Snapshot) []model.Link {
	var links []model.Link
	for _, obj := range snap.Objects {
		links = append(links, LinksFor(snap, obj)...)
	}
	return links
}

// LinksFor returns the edges for a single object, in tag order.
func LinksFor(snap *Snapshot, obj *model.OSMObject) []model.Link {
	if len(obj.FHRSIDs) == 0 {
		return nil
	}

	links := make([]model.Link, 0, len(obj.FHRSIDs))
	for _, id := range obj.FHRSIDs {
		link := model.Link{OSM: obj.Ref, FHRSID: id}

		est, ok := snap.Establishment(id)
		if !ok {
			// Dangling reference: nothing to compare against.
			links = append(links, link)
			continue
		}

		link.Found = true
		if obj.Location != nil && est.Location != nil {
			d := geo.DistanceMeters(*obj.Location, *est.Location)
			link.DistanceMeters = &d
		}
		link.PostcodesMatch = postcodesMatch(obj, est)
		links = append(links, link)
	}
	return links
}

// postcodesMatch implements the tri-state postcode comparison: nil when
// either side has no postcode, true when the object's addr:postcode or
// not:addr:postcode agrees with the establishment's validated postcode,
// false otherwise. Comparison is case and whitespace insensitive so a
// formatting difference alone never counts as a mismatch.
func postcodesMatch(obj *model.OSMObject, est *model.Establishment) *bool {
	if est.Postcode == "" || !obj.HasPostcode() {
		return nil
	}

	match := false
	if obj.Postcode != "" && normalize.PostcodesEqual(obj.Postcode, est.Postcode) {
		match = true
	}
	if obj.NotPostcode != "" && normalize.PostcodesEqual(obj.NotPostcode, est.Postcode) {
		match = true
	}
	return &match
}
