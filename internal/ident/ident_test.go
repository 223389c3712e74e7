package ident

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		want  []int64
		valid bool
	}{
		{"single id", "123", []int64{123}, true},
		{"two ids", "123;124", []int64{123, 124}, true},
		{"space after separator", "123; 124", []int64{123, 124}, true},
		{"mixed separators", "1;2; 3;4", []int64{1, 2, 3, 4}, true},
		{"duplicates preserved", "5;5", []int64{5, 5}, true},
		{"order preserved", "9;3;7", []int64{9, 3, 7}, true},
		{"empty string", "", nil, false},
		{"trailing separator", "123;", nil, false},
		{"empty segment", "123;;124", nil, false},
		{"comma separator", "123, 124", nil, false},
		{"double space", "123;  124", nil, false},
		{"space before separator", "123 ;124", nil, false},
		{"leading separator", ";123", nil, false},
		{"non-numeric token", "123;abc", nil, false},
		{"negative id", "-123", nil, false},
		{"trailing space", "123 ", nil, false},
		{"embedded text", "fhrs 123", nil, false},
		{"int64 overflow", "99999999999999999999", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids, valid := Parse(tt.raw)
			assert.Equal(t, tt.valid, valid)
			assert.Equal(t, tt.want, ids)
		})
	}
}
