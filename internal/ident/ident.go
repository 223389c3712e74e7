// Package ident parses the fhrs:id cross-reference tag carried by OSM
// objects. External editing tools write this tag, so the accepted format is
// bit-exact: ASCII digits separated by ";" with at most one space after
// each separator, nothing else.
package ident

import (
	"regexp"
	"strconv"
	"strings"
)

// tagRe is the whole-string grammar: INT (";" " "? INT)*.
// No trailing separator, no empty segments, no other characters.
var tagRe = regexp.MustCompile(`^[0-9]+(; ?[0-9]+)*$`)

// Parse parses a raw fhrs:id tag value into its ordered list of IDs.
// Duplicates and order are preserved; order matters downstream when mapping
// suggestions onto the first dangling reference.
//
// The second return is false on any deviation from the grammar, including
// the empty string. An invalid tag yields no IDs but is deliberately not a
// "bad" classification by itself: a malformed tag and a well-formed tag
// pointing at a vanished establishment call for different fixes, and only
// the latter is a dangling reference.
func Parse(raw string) ([]int64, bool) {
	if raw == "" || !tagRe.MatchString(raw) {
		return nil, false
	}

	parts := strings.Split(raw, ";")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseInt(strings.TrimPrefix(part, " "), 10, 64)
		if err != nil {
			// Matched the grammar but overflows int64.
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}
