// Package fuzzy scores establishment-name similarity for suggestion
// ranking. Scores are a ranking signal only; nothing in the engine uses
// them as a hard accept/reject gate.
package fuzzy

import (
	"sort"
	"strings"

	"github.com/agext/levenshtein"

	"github.com/fooddata/fhrs-reconcile/internal/normalize"
)

// Ratio returns a similarity in [0,1] between two raw names. Both are
// standardised first (case fold, unaccent, punctuation stripped), so
// "ACME Cafe" and "Acme Café" score 1.0.
func Ratio(a, b string) float64 {
	return TokenSetRatio(normalize.Name(a), normalize.Name(b))
}

// TokenSetRatio computes a token-set similarity between two standardised
// strings: tokens are split into the shared set and each side's remainder,
// and the best pairwise edit-distance ratio of the three reassembled forms
// is returned. Word order and duplicated tokens do not reduce the score,
// and equal token sets score exactly 1. Symmetric by construction.
func TokenSetRatio(a, b string) float64 {
	if a == b {
		return 1
	}

	tokensA := tokenSet(a)
	tokensB := tokenSet(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	var shared, onlyA, onlyB []string
	for tok := range tokensA {
		if tokensB[tok] {
			shared = append(shared, tok)
		} else {
			onlyA = append(onlyA, tok)
		}
	}
	for tok := range tokensB {
		if !tokensA[tok] {
			onlyB = append(onlyB, tok)
		}
	}
	sort.Strings(shared)
	sort.Strings(onlyA)
	sort.Strings(onlyB)

	base := strings.Join(shared, " ")
	full := func(extra []string) string {
		if base == "" {
			return strings.Join(extra, " ")
		}
		if len(extra) == 0 {
			return base
		}
		return base + " " + strings.Join(extra, " ")
	}
	combinedA := full(onlyA)
	combinedB := full(onlyB)

	params := levenshtein.NewParams()
	best := levenshtein.Similarity(combinedA, combinedB, params)
	if base != "" {
		if r := levenshtein.Similarity(base, combinedA, params); r > best {
			best = r
		}
		if r := levenshtein.Similarity(base, combinedB, params); r > best {
			best = r
		}
	}
	return best
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(s) {
		set[tok] = true
	}
	return set
}
