// Package gazetteer indexes OS Open Names populated places and named
// roads for address parsing. The product ships as a directory of CSV
// files; import filters it down to the two object types the parser
// consults and the index answers lookups by standardised name, narrowed
// by postcode area where one is known. OS Open Names has no coverage of
// Northern Ireland, which the parser handles separately.
package gazetteer

import (
	"regexp"
	"strings"
)

// Name is one gazetteer entry. NameStd and AltNameStd carry the
// standardised forms (the second name is the Welsh or Gaelic alternative,
// often absent). Roads have an empty PlaceType.
type Name struct {
	ID           string
	Name         string
	NameStd      string
	AltNameStd   string
	PostcodeArea string
	PlaceType    string
}

// postcodeAreaRe extracts the leading letters of a postcode district.
var postcodeAreaRe = regexp.MustCompile(`^[A-Z]+`)

// PostcodeAreaOf returns the area of a postcode district, e.g. "LS" for
// "LS6", or "" when the district is malformed.
func PostcodeAreaOf(district string) string {
	return postcodeAreaRe.FindString(district)
}

// placeCategory folds the OS local types down to the categories the
// address parser distinguishes.
func placeCategory(localType string) string {
	switch localType {
	case "City", "Town", "Village", "Hamlet":
		return strings.ToLower(localType)
	case "Suburban Area":
		return "suburb"
	default:
		// e.g. "Other Settlement"
		return "other"
	}
}

type placeEntry struct {
	area     string
	category string
}

// Index answers place and road lookups from memory. The keys are
// standardised names; each name may appear in several postcode areas.
type Index struct {
	places map[string][]placeEntry
	roads  map[string][]string
}

// NewIndex builds an Index. Entries with an alternative name are
// reachable under both forms.
func NewIndex(places, roads []Name) *Index {
	idx := &Index{
		places: make(map[string][]placeEntry, len(places)),
		roads:  make(map[string][]string, len(roads)),
	}
	for _, p := range places {
		entry := placeEntry{area: p.PostcodeArea, category: placeCategory(p.PlaceType)}
		for _, std := range keys(p) {
			idx.places[std] = append(idx.places[std], entry)
		}
	}
	for _, r := range roads {
		for _, std := range keys(r) {
			idx.roads[std] = append(idx.roads[std], r.PostcodeArea)
		}
	}
	return idx
}

func keys(n Name) []string {
	if n.NameStd == "" {
		return nil
	}
	if n.AltNameStd == "" || n.AltNameStd == n.NameStd {
		return []string{n.NameStd}
	}
	return []string{n.NameStd, n.AltNameStd}
}

// Len returns the number of distinct indexed names.
func (idx *Index) Len() int {
	return len(idx.places) + len(idx.roads)
}

// PlaceType returns the settlement category for a standardised name. A
// non-empty postcode area restricts the match to that area.
func (idx *Index) PlaceType(std, postcodeArea string) (string, bool) {
	for _, entry := range idx.places[std] {
		if postcodeArea == "" || entry.area == postcodeArea {
			return entry.category, true
		}
	}
	return "", false
}

// IsRoad reports whether a standardised name matches a named road,
// restricted to the postcode area when one is given.
func (idx *Index) IsRoad(std, postcodeArea string) bool {
	for _, area := range idx.roads[std] {
		if postcodeArea == "" || area == postcodeArea {
			return true
		}
	}
	return false
}
