// Package normalize holds the string standardisation shared by postcode
// comparison, fuzzy name matching and address parsing. Comparisons elsewhere
// in the engine must only ever see normalized forms so that formatting
// differences never register as mismatches.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	multiSpaceRe = regexp.MustCompile(`\s+`)
	andRe        = regexp.MustCompile(` ?[&+] ?`)
	atRe         = regexp.MustCompile(` ?@ ?`)
	punctRe      = regexp.MustCompile(`[./-]`)
	nonAlphaRe   = regexp.MustCompile(`[^a-z\s]`)
	nonAlnumRe   = regexp.MustCompile(`[^a-z0-9\s]`)
	ltdRe        = regexp.MustCompile(`\bltd\b`)

	// NFD decomposition followed by removal of combining marks strips
	// accents: "Café" -> "Cafe".
	unaccenter = transform.Chain(
		norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// Postcode normalizes a postcode for equality comparison: uppercase,
// internal whitespace collapsed to a single space, trimmed.
func Postcode(s string) string {
	s = strings.TrimSpace(s)
	s = multiSpaceRe.ReplaceAllString(s, " ")
	return strings.ToUpper(s)
}

// PostcodesEqual compares two postcodes after normalization, ignoring any
// space between outward and inward codes ("AB1 2CD" equals "ab12cd").
func PostcodesEqual(a, b string) bool {
	return strings.ReplaceAll(Postcode(a), " ", "") ==
		strings.ReplaceAll(Postcode(b), " ", "")
}

// Unaccent removes combining marks from a string.
func Unaccent(s string) string {
	out, _, err := transform.String(unaccenter, s)
	if err != nil {
		return s
	}
	return out
}

// Place standardises a place or street name for gazetteer lookup: unaccent,
// lowercase, certain punctuation to spaces, "&"/"+" to "and", everything
// else non-alphabetic dropped, whitespace collapsed.
func Place(s string) string {
	s = Unaccent(s)
	s = strings.ToLower(s)
	s = punctRe.ReplaceAllString(s, " ")
	s = andRe.ReplaceAllString(s, " and ")
	s = nonAlphaRe.ReplaceAllString(s, "")
	return collapse(s)
}

// Name standardises an establishment name for fuzzy matching. Unlike Place
// it keeps digits, maps "@" to "at" and drops the "ltd" suffix word.
func Name(s string) string {
	s = Unaccent(s)
	s = strings.ToLower(s)
	s = punctRe.ReplaceAllString(s, " ")
	s = andRe.ReplaceAllString(s, " and ")
	s = atRe.ReplaceAllString(s, " at ")
	s = nonAlnumRe.ReplaceAllString(s, "")
	s = ltdRe.ReplaceAllString(s, "")
	return collapse(s)
}

func collapse(s string) string {
	return strings.TrimSpace(multiSpaceRe.ReplaceAllString(s, " "))
}
