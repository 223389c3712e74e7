package address

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fooddata/fhrs-reconcile/internal/model"
)

// fakeGazetteer serves place and road lookups from fixed maps, keyed by
// standardised name.
type fakeGazetteer struct {
	places map[string]string
	roads  map[string]bool
}

func (g *fakeGazetteer) PlaceType(std, _ string) (string, bool) {
	typ, ok := g.places[std]
	return typ, ok
}

func (g *fakeGazetteer) IsRoad(std, _ string) bool {
	return g.roads[std]
}

func testGazetteer() *fakeGazetteer {
	return &fakeGazetteer{
		places: map[string]string{
			"headingley":         "suburb",
			"pool in wharfedale": "village",
			"weeton":             "hamlet",
			"scatterford":        "other",
		},
		roads: map[string]bool{
			"high street": true,
			"otley road":  true,
			"mill lane":   true,
			"the headrow": true,
		},
	}
}

func tags(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Tag
	}
	return out
}

func values(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Value
	}
	return out
}

func TestParseTypicalAddress(t *testing.T) {
	p := NewParser(testGazetteer())

	tokens := p.Parse([]string{"12 Otley Road", "Headingley", "Leeds", "West Yorkshire"}, "LS")

	assert.Equal(t, []string{
		"addr:housenumber", "addr:street", "addr:suburb", "addr:city", "addr:county",
	}, tags(tokens))
	assert.Equal(t, []string{
		"12", "Otley Road", "Headingley", "Leeds", "West Yorkshire",
	}, values(tokens))
	assert.False(t, Unresolved(tokens))
}

func TestParseSplitsCommasAndDropsConsecutiveDuplicates(t *testing.T) {
	p := NewParser(testGazetteer())

	tokens := p.Parse([]string{"Mill Lane, Weeton", "Weeton"}, "LS")

	assert.Equal(t, []string{"addr:street", "addr:hamlet"}, tags(tokens))
	assert.Equal(t, []string{"Mill Lane", "Weeton"}, values(tokens))
}

func TestParseNumberRange(t *testing.T) {
	p := NewParser(testGazetteer())

	tokens := p.Parse([]string{"10-12 High Street", "Leeds"}, "LS")

	require.Len(t, tokens, 3)
	assert.Equal(t, "addr:housenumber", tokens[0].Tag)
	assert.Equal(t, "10-12", tokens[0].Value)
	assert.Equal(t, "addr:street", tokens[1].Tag)
	assert.Equal(t, "addr:city", tokens[2].Tag)
}

func TestParseFloorAndUnit(t *testing.T) {
	p := NewParser(testGazetteer())

	tokens := p.Parse([]string{"First Floor", "Unit 5", "High Street", "Leeds"}, "LS")

	require.Len(t, tokens, 4)
	assert.Equal(t, "addr:floor", tokens[0].Tag)
	assert.Equal(t, "1", tokens[0].Norm)
	assert.Equal(t, "First Floor", tokens[0].Value)
	assert.Equal(t, "addr:unit", tokens[1].Tag)
	assert.Equal(t, "5", tokens[1].Norm)
	assert.Equal(t, "addr:street", tokens[2].Tag)
}

func TestParseFloorVariants(t *testing.T) {
	tests := []struct {
		in   string
		norm string
	}{
		{"1st Floor", "1"},
		{"2nd floor", "2"},
		{"Floor 3", "3"},
		{"Ground Floor", "0"},
		{"Second Floor", "2"},
	}
	p := NewParser(nil)
	for _, tt := range tests {
		tokens := p.Parse([]string{tt.in}, "")
		require.Len(t, tokens, 1, "input %q", tt.in)
		assert.Equal(t, "addr:floor", tokens[0].Tag, "input %q", tt.in)
		assert.Equal(t, tt.norm, tokens[0].Norm, "input %q", tt.in)
	}
}

func TestParseUnrecognisedFragmentGetsFixme(t *testing.T) {
	p := NewParser(testGazetteer())

	tokens := p.Parse([]string{"The Old Mill", "Rear of Garage", "Leeds"}, "LS")

	require.Len(t, tokens, 3)
	assert.Equal(t, "addr:housename", tokens[0].Tag)
	assert.Equal(t, "fixme:addr:1", tokens[1].Tag)
	assert.Equal(t, "Rear of Garage", tokens[1].Value)
	assert.Equal(t, "addr:city", tokens[2].Tag)
	assert.True(t, Unresolved(tokens))
}

func TestParseOtherSettlementIsUnresolved(t *testing.T) {
	p := NewParser(testGazetteer())

	tokens := p.Parse([]string{"High Street", "Scatterford", "Leeds"}, "LS")

	assert.Equal(t, []string{"addr:street", "fixme:place", "addr:city"}, tags(tokens))
	assert.True(t, Unresolved(tokens))
}

func TestParseCountyVersusPostTown(t *testing.T) {
	// London is both a county and a post town; post town wins and the
	// county tag stays available for a later token.
	p := NewParser(nil)

	tokens := p.Parse([]string{"High Street", "London"}, "")

	assert.Equal(t, []string{"addr:street", "addr:city"}, tags(tokens))
}

func TestParseRoadHeuristicWithoutGazetteer(t *testing.T) {
	p := NewParser(nil)

	tokens := p.Parse([]string{"4 Station Road", "Belfast"}, "BT")

	assert.Equal(t, []string{"addr:housenumber", "addr:street", "addr:city"}, tags(tokens))
}

func TestParseAllCapsCorrected(t *testing.T) {
	p := NewParser(testGazetteer())

	tokens := p.Parse([]string{"12A HIGH STREET", "LEEDS"}, "LS")

	assert.Equal(t, []string{"12A", "High Street", "Leeds"}, values(tokens))
}

func TestParseIdempotent(t *testing.T) {
	p := NewParser(testGazetteer())

	inputs := [][]string{
		{"12 Otley Road", "Headingley", "Leeds", "West Yorkshire"},
		{"First Floor", "Unit 5", "High Street", "Leeds"},
		{"The Old Mill, Rear of Garage", "Leeds"},
		{"10-12 HIGH STREET", "LEEDS"},
	}
	for _, lines := range inputs {
		first := p.Parse(lines, "LS")
		again := p.Parse(values(first), "LS")
		assert.Equal(t, first, again, "re-parse of %v diverged", lines)
	}
}

func TestParseEstablishmentDropsNameLine(t *testing.T) {
	p := NewParser(testGazetteer())
	est := &model.Establishment{
		Name:         "Acme Cafe",
		AddressLines: []string{"Acme Cafe", "12 Otley Road", "Leeds"},
		Postcode:     "LS6 3AA",
	}

	tokens := p.ParseEstablishment(est)

	assert.Equal(t, []string{"12", "Otley Road", "Leeds"}, values(tokens))
}

func TestParseEmpty(t *testing.T) {
	p := NewParser(nil)
	assert.Empty(t, p.Parse(nil, ""))
	assert.Empty(t, p.Parse([]string{"", "  "}, ""))
}

func TestPostcodeArea(t *testing.T) {
	assert.Equal(t, "LS", postcodeArea("LS6 3AA"))
	assert.Equal(t, "B", postcodeArea("B12 9QR"))
	assert.Equal(t, "", postcodeArea(""))
	assert.Equal(t, "", postcodeArea("XX1 1XX"), "unknown area searches all post towns")
}
