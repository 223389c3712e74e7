package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSingleSpaceRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		ref     OSMRef
		encoded int64
	}{
		{"node keeps its id", OSMRef{TypeNode, 42}, 42},
		{"way is negated", OSMRef{TypeWay, 42}, -42},
		{"relation is negated and offset", OSMRef{TypeRelation, 42}, -42 - int64(1e17)},
		{"large node id", OSMRef{TypeNode, 9876543210}, 9876543210},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.encoded, tt.ref.SingleSpace())
			assert.Equal(t, tt.ref, RefFromSingleSpace(tt.encoded))
		})
	}
}

func TestSingleSpaceNoCollision(t *testing.T) {
	seen := map[int64]OSMRef{}
	for _, ref := range []OSMRef{
		{TypeNode, 1}, {TypeWay, 1}, {TypeRelation, 1},
		{TypeNode, 7}, {TypeWay, 7}, {TypeRelation, 7},
	} {
		id := ref.SingleSpace()
		prev, dup := seen[id]
		require.False(t, dup, "collision between %v and %v", prev, ref)
		seen[id] = ref
	}
}

func TestParseOSMType(t *testing.T) {
	for _, valid := range []string{"node", "way", "relation"} {
		typ, err := ParseOSMType(valid)
		require.NoError(t, err)
		assert.Equal(t, OSMType(valid), typ)
	}

	_, err := ParseOSMType("vertex")
	assert.Error(t, err)
}

func TestHasPostcode(t *testing.T) {
	assert.False(t, (&OSMObject{}).HasPostcode())
	assert.True(t, (&OSMObject{Postcode: "AB1 2CD"}).HasPostcode())
	assert.True(t, (&OSMObject{NotPostcode: "AB1 2CD"}).HasPostcode())
}
