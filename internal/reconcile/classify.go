package reconcile

import "github.com/fooddata/fhrs-reconcile/internal/model"

// ClassifyObject assigns an OSM object's match state from its full edge
// set. Precedence, highest first:
//
//  1. any dangling reference       -> bad
//  2. any postcode disagreement    -> bad
//  3. any postcode agreement       -> matched
//  4. otherwise                    -> unmatched
//
// A dangling reference forces bad even when another edge on the same
// object is a clean match; the object needs fixing either way.
func ClassifyObject(links []model.Link) model.OSMState {
	matched := false
	for _, link := range links {
		if !link.Found {
			return model.OSMBad
		}
		if link.PostcodesMatch != nil && !*link.PostcodesMatch {
			return model.OSMBad
		}
		if link.PostcodesMatch != nil && *link.PostcodesMatch {
			matched = true
		}
	}
	if matched {
		return model.OSMMatched
	}
	return model.OSMUnmatched
}

// ClassifyEstablishment assigns an establishment's match state from its
// inbound edge set. Dominance is the reverse of the object rule: one
// agreeing link is sufficient evidence of a correct match, however many
// erroneous links other objects contribute.
//
//  1. any inbound postcode agreement     -> matched_same_postcode
//  2. any inbound postcode disagreement  -> matched_different_postcode
//  3. no location on the establishment   -> unmatched_without_location
//  4. otherwise                          -> unmatched_with_location
func ClassifyEstablishment(inbound []model.Link, hasLocation bool) model.FHRSState {
	differing := false
	for _, link := range inbound {
		if link.PostcodesMatch == nil {
			continue
		}
		if *link.PostcodesMatch {
			return model.FHRSMatchedSamePostcode
		}
		differing = true
	}
	if differing {
		return model.FHRSMatchedDifferentPostcode
	}
	if !hasLocation {
		return model.FHRSUnmatchedWithoutLocation
	}
	return model.FHRSUnmatchedWithLocation
}
