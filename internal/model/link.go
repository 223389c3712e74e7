package model

// Link is one edge of the OSM<->FHRS linkage: an fhrs:id reference from an
// OSM object, resolved (or not) against the current register snapshot.
// Links are rebuilt from scratch on every reconciliation pass and never
// persisted with their own identity.
type Link struct {
	OSM    OSMRef `json:"osm"`
	FHRSID int64  `json:"fhrs_id"`

	// Found is false when the referenced ID resolves to no establishment
	// in the current snapshot (a dangling reference).
	Found bool `json:"found"`

	// DistanceMeters is the geodesic distance between the two endpoints,
	// nil when either side has no location or the reference is dangling.
	DistanceMeters *float64 `json:"distance_meters,omitempty"`

	// PostcodesMatch is nil when either side has no postcode to compare.
	PostcodesMatch *bool `json:"postcodes_match,omitempty"`
}

// OSMState is the match classification of an OSM object.
type OSMState string

const (
	// OSMBad: at least one dangling reference, or at least one resolved
	// link whose postcodes differ.
	OSMBad OSMState = "bad"
	// OSMMatched: at least one link with agreeing postcodes and nothing bad.
	OSMMatched OSMState = "matched"
	// OSMUnmatched: no links, or only links with nothing to compare.
	OSMUnmatched OSMState = "unmatched"
)

// FHRSState is the match classification of an establishment.
type FHRSState string

const (
	FHRSMatchedSamePostcode      FHRSState = "matched_same_postcode"
	FHRSMatchedDifferentPostcode FHRSState = "matched_different_postcode"
	FHRSUnmatchedWithLocation    FHRSState = "unmatched_with_location"
	FHRSUnmatchedWithoutLocation FHRSState = "unmatched_without_location"
)

// OSMStates and FHRSStates list every state in stable order, used by the
// aggregator so that stats rows come out deterministically.
var (
	OSMStates  = []OSMState{OSMBad, OSMMatched, OSMUnmatched}
	FHRSStates = []FHRSState{
		FHRSMatchedSamePostcode,
		FHRSMatchedDifferentPostcode,
		FHRSUnmatchedWithLocation,
		FHRSUnmatchedWithoutLocation,
	}
)
