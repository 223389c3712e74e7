package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fooddata/fhrs-reconcile/internal/model"
)

func boolPtr(b bool) *bool { return &b }

func TestClassifyObject(t *testing.T) {
	tests := []struct {
		name  string
		links []model.Link
		want  model.OSMState
	}{
		{
			name:  "no links",
			links: nil,
			want:  model.OSMUnmatched,
		},
		{
			name: "single matching link",
			links: []model.Link{
				{Found: true, PostcodesMatch: boolPtr(true)},
			},
			want: model.OSMMatched,
		},
		{
			name: "single differing link",
			links: []model.Link{
				{Found: true, PostcodesMatch: boolPtr(false)},
			},
			want: model.OSMBad,
		},
		{
			name: "dangling reference",
			links: []model.Link{
				{Found: false},
			},
			want: model.OSMBad,
		},
		{
			name: "mismatch dominates match",
			links: []model.Link{
				{Found: true, PostcodesMatch: boolPtr(true)},
				{Found: true, PostcodesMatch: boolPtr(false)},
			},
			want: model.OSMBad,
		},
		{
			name: "dangling dominates match",
			links: []model.Link{
				{Found: true, PostcodesMatch: boolPtr(true)},
				{Found: false},
			},
			want: model.OSMBad,
		},
		{
			name: "only incomparable links",
			links: []model.Link{
				{Found: true},
				{Found: true},
			},
			want: model.OSMUnmatched,
		},
		{
			name: "match beats incomparable",
			links: []model.Link{
				{Found: true},
				{Found: true, PostcodesMatch: boolPtr(true)},
			},
			want: model.OSMMatched,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyObject(tt.links))
		})
	}
}

func TestClassifyEstablishment(t *testing.T) {
	tests := []struct {
		name        string
		inbound     []model.Link
		hasLocation bool
		want        model.FHRSState
	}{
		{
			name:        "no inbound edges, has location",
			hasLocation: true,
			want:        model.FHRSUnmatchedWithLocation,
		},
		{
			name:        "no inbound edges, no location",
			hasLocation: false,
			want:        model.FHRSUnmatchedWithoutLocation,
		},
		{
			name: "single agreeing edge",
			inbound: []model.Link{
				{Found: true, PostcodesMatch: boolPtr(true)},
			},
			hasLocation: true,
			want:        model.FHRSMatchedSamePostcode,
		},
		{
			name: "single differing edge",
			inbound: []model.Link{
				{Found: true, PostcodesMatch: boolPtr(false)},
			},
			hasLocation: true,
			want:        model.FHRSMatchedDifferentPostcode,
		},
		{
			// dominance reversed relative to the object rule: one good
			// link outweighs any number of erroneous ones
			name: "agreement dominates disagreement",
			inbound: []model.Link{
				{Found: true, PostcodesMatch: boolPtr(false)},
				{Found: true, PostcodesMatch: boolPtr(true)},
			},
			hasLocation: true,
			want:        model.FHRSMatchedSamePostcode,
		},
		{
			name: "only incomparable edges fall through to unmatched",
			inbound: []model.Link{
				{Found: true},
			},
			hasLocation: false,
			want:        model.FHRSUnmatchedWithoutLocation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyEstablishment(tt.inbound, tt.hasLocation))
		})
	}
}

// The two dominance rules deliberately point in opposite directions; pin
// both on the same edge pattern so a refactor cannot quietly unify them.
func TestDominanceDirectionsDiffer(t *testing.T) {
	mixed := []model.Link{
		{Found: true, PostcodesMatch: boolPtr(true)},
		{Found: true, PostcodesMatch: boolPtr(false)},
	}
	assert.Equal(t, model.OSMBad, ClassifyObject(mixed))
	assert.Equal(t, model.FHRSMatchedSamePostcode, ClassifyEstablishment(mixed, true))
}
