// Package address decomposes free-text FHRS address lines into structured
// addr:* tokens suitable for one-click tagging. Segmentation is rule-based
// and deterministic; anything it cannot place is tagged fixme:addr:N rather
// than dropped, and callers must treat the presence of any fixme token as a
// signal to warn before automated tagging.
package address

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/fooddata/fhrs-reconcile/internal/model"
	"github.com/fooddata/fhrs-reconcile/internal/normalize"
)

// Token is one classified fragment of an address. Value keeps the original
// text (so re-parsing a token sequence is stable); Norm carries the
// extracted number for floor and unit tokens.
type Token struct {
	Tag   string `json:"tag"`
	Value string `json:"value"`
	Norm  string `json:"norm,omitempty"`
}

// Gazetteer answers place and road lookups for already-standardised names.
// PlaceType returns one of "city", "town", "village", "hamlet", "suburb" or
// "other". The postcode area narrows the search when non-empty.
type Gazetteer interface {
	PlaceType(std, postcodeArea string) (string, bool)
	IsRoad(std, postcodeArea string) bool
}

// Parser segments establishment addresses. A nil gazetteer degrades
// gracefully: places are then only recognised from the post-town and county
// lists, and roads from common name endings.
type Parser struct {
	gaz Gazetteer
}

func NewParser(gaz Gazetteer) *Parser {
	return &Parser{gaz: gaz}
}

const tagUnresolvedPrefix = "fixme:addr:"

// numRangePattern matches a house number or number range, with an optional
// letter suffix on either bound ("12", "12a", "10-12", "1a - 3b").
const numRangePattern = `[0-9]+[A-Za-z]?( *[-–] *[0-9]+[A-Za-z]?)?`

var (
	leadingNumberRe = regexp.MustCompile(`^(` + numRangePattern + `)( +.*)?$`)
	floorOrdinalRe  = regexp.MustCompile(`^([0-9]+)(st|nd|rd|th) +floor$`)
	floorNumberRe   = regexp.MustCompile(`^floor +([0-9]+)$`)
	floorWordRe     = regexp.MustCompile(`^(ground|first|second) +floors?$`)
	floorSuffixRe   = regexp.MustCompile(` floor$`)
	unitOpeningRe   = regexp.MustCompile(`^(unit|flat)s? +`)
	unitRe          = regexp.MustCompile(`^(unit|flat)s? +(` + numRangePattern + `)$`)
	roadSuffixRe    = regexp.MustCompile(` (road|close|street|lane|avenue|drive|way|court|place|gardens|terrace|crescent|hill|row|square|green|grove|parade|walk)$`)
)

// ParseEstablishment tokenises and classifies an establishment's address.
func (p *Parser) ParseEstablishment(est *model.Establishment) []Token {
	lines := make([]string, 0, len(est.AddressLines))
	for i, line := range est.AddressLines {
		// the first line often repeats the establishment name
		if i == 0 && strings.TrimSpace(line) == strings.TrimSpace(est.Name) {
			continue
		}
		lines = append(lines, line)
	}
	return p.Parse(lines, postcodeArea(est.Postcode))
}

// Parse segments the given address lines. Idempotent: parsing the values of
// its own output again yields the same tokens.
func (p *Parser) Parse(lines []string, postcodeArea string) []Token {
	tokens := prepare(lines)
	p.classifyPlaces(tokens, postcodeArea)
	p.classifyPremises(tokens, postcodeArea)
	for i := range tokens {
		tokens[i].Value = correctAllCaps(tokens[i].Value)
	}
	tagUnresolved(tokens)
	return tokens
}

// Unresolved reports whether any token could not be classified.
func Unresolved(tokens []Token) bool {
	for _, tok := range tokens {
		if strings.HasPrefix(tok.Tag, tagUnresolvedPrefix) || tok.Tag == "fixme:place" {
			return true
		}
	}
	return false
}

// prepare splits lines on commas, trims, drops empties and consecutive
// duplicates (post town repeated as county is common), and splits a leading
// house number or range into its own token.
func prepare(lines []string) []Token {
	var parts []string
	for _, line := range lines {
		for _, part := range strings.Split(line, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if len(parts) > 0 && parts[len(parts)-1] == part {
				continue
			}
			parts = append(parts, part)
		}
	}

	var tokens []Token
	for _, part := range parts {
		if m := leadingNumberRe.FindStringSubmatch(part); m != nil {
			tokens = append(tokens, Token{Tag: "number", Value: m[1]})
			if rest := strings.TrimSpace(m[3]); rest != "" {
				tokens = append(tokens, Token{Value: rest})
			}
			continue
		}
		tokens = append(tokens, Token{Value: part})
	}
	return tokens
}

// classifyPlaces walks the address in reverse, where the settlement-level
// components live: post town (tagged addr:city whether or not it is one),
// county, then gazetteer places. At most one of each tag.
func (p *Parser) classifyPlaces(tokens []Token, postcodeArea string) {
	for i := len(tokens) - 1; i >= 0; i-- {
		if tokens[i].Tag == "number" {
			continue
		}
		value := tokens[i].Value

		switch {
		case !hasTag(tokens, "addr:city") && isPostTown(value, postcodeArea):
			tokens[i].Tag = "addr:city"
		case !hasTag(tokens, "addr:county") && isCounty(value):
			tokens[i].Tag = "addr:county"
		default:
			if tag, ok := p.placeTag(value, postcodeArea); ok && !hasTag(tokens, tag) {
				tokens[i].Tag = tag
			}
		}
	}
}

// classifyPremises walks forward over the premises-level tokens, stopping at
// the first settlement-level tag found by classifyPlaces.
func (p *Parser) classifyPremises(tokens []Token, postcodeArea string) {
	for i := range tokens {
		if tokens[i].Tag != "" && tokens[i].Tag != "number" {
			break
		}
		value := tokens[i].Value

		if floor, ok := floorNumber(value); ok {
			setIfUnique(tokens, i, "addr:floor", floor)
			continue
		}
		if unit, ok := unitNumber(value); ok {
			setIfUnique(tokens, i, "addr:unit", unit)
			continue
		}
		if tokens[i].Tag == "number" {
			if hasTag(tokens, "addr:housenumber") {
				tokens[i].Tag = ""
			} else {
				tokens[i].Tag = "addr:housenumber"
			}
			continue
		}
		if p.isRoad(value, postcodeArea) {
			setIfUnique(tokens, i, "addr:street", "")
			continue
		}
		setIfUnique(tokens, i, "addr:housename", "")
	}
}

func (p *Parser) placeTag(value, postcodeArea string) (string, bool) {
	if p.gaz == nil {
		return "", false
	}
	std := normalize.Place(value)
	if std == "" {
		return "", false
	}
	placeType, ok := p.gaz.PlaceType(std, postcodeArea)
	if !ok {
		return "", false
	}
	switch placeType {
	case "city", "town", "village", "hamlet", "suburb":
		return "addr:" + placeType, true
	default:
		return "fixme:place", true
	}
}

func (p *Parser) isRoad(value, postcodeArea string) bool {
	// The gazetteer has no road coverage for Northern Ireland, so BT
	// falls back to the name-ending heuristic like the no-gazetteer case.
	if p.gaz != nil && postcodeArea != "BT" {
		std := normalize.Place(value)
		return std != "" && p.gaz.IsRoad(std, postcodeArea)
	}
	return roadSuffixRe.MatchString(strings.ToLower(value))
}

// floorNumber extracts a floor number, or returns the string unchanged when
// it clearly names a floor in an unrecognised form.
func floorNumber(value string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(value))
	if !strings.Contains(lower, "floor") {
		return "", false
	}
	if m := floorOrdinalRe.FindStringSubmatch(lower); m != nil {
		return m[1], true
	}
	if m := floorNumberRe.FindStringSubmatch(lower); m != nil {
		return m[1], true
	}
	if m := floorWordRe.FindStringSubmatch(lower); m != nil {
		words := map[string]string{"ground": "0", "first": "1", "second": "2"}
		return words[m[1]], true
	}
	if floorSuffixRe.MatchString(lower) {
		return value, true
	}
	return "", false
}

// unitNumber extracts a unit or flat number.
func unitNumber(value string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(value))
	if !unitOpeningRe.MatchString(lower) {
		return "", false
	}
	if m := unitRe.FindStringSubmatch(lower); m != nil {
		return strings.ToUpper(m[2]), true
	}
	// starts with "unit(s)"/"flat(s)" but otherwise unrecognised
	return value, true
}

func hasTag(tokens []Token, tag string) bool {
	for _, tok := range tokens {
		if tok.Tag == tag {
			return true
		}
	}
	return false
}

func setIfUnique(tokens []Token, i int, tag, norm string) {
	if hasTag(tokens, tag) {
		tokens[i].Tag = ""
		tokens[i].Norm = ""
		return
	}
	tokens[i].Tag = tag
	tokens[i].Norm = norm
}

// correctAllCaps converts fully upper-case values to title case, keeping
// letter-after-digit capitals ("12A") intact.
func correctAllCaps(value string) string {
	if value != strings.ToUpper(value) {
		return value
	}
	var b strings.Builder
	prevLetter := false
	for _, r := range strings.ToLower(value) {
		if unicode.IsLetter(r) && !prevLetter {
			r = unicode.ToUpper(r)
		}
		prevLetter = unicode.IsLetter(r)
		b.WriteRune(r)
	}
	return b.String()
}

// tagUnresolved numbers the leftover tokens fixme:addr:1, fixme:addr:2, ...
// A number token past the settlement boundary is leftover too.
func tagUnresolved(tokens []Token) {
	n := 1
	for i := range tokens {
		if tokens[i].Tag == "" || tokens[i].Tag == "number" {
			tokens[i].Tag = fmt.Sprintf("%s%d", tagUnresolvedPrefix, n)
			n++
		}
	}
}

// postcodeArea extracts the leading letters of a postcode for gazetteer and
// post-town narrowing; empty when the postcode is absent or unrecognised.
func postcodeArea(postcode string) string {
	area := ""
	for _, r := range normalize.Postcode(postcode) {
		if r < 'A' || r > 'Z' {
			break
		}
		area += string(r)
		if len(area) == 2 {
			break
		}
	}
	if _, ok := postTownsStdByArea[area]; !ok {
		return ""
	}
	return area
}
