package common

import (
	"math"
	"strings"
)

// NormalizeTerm trims and lower-cases a search term so equivalent queries
// share one cache key.
func NormalizeTerm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// QueryWords splits a normalized query on spaces and commas.
func QueryWords(s string) []string {
	return strings.FieldsFunc(NormalizeTerm(s), func(r rune) bool {
		return r == ' ' || r == ','
	})
}

// HasAny returns true if s contains any of the substrings.
func HasAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// RoundCoordinate rounds a latitude or longitude to the 5 decimal places
// persisted by the store.
func RoundCoordinate(v float64) float64 {
	return math.Round(v*1e5) / 1e5
}
