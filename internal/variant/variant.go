// Package variant derives candidate identifiers from a seed username.
package variant

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var suffixes = []string{"123", "01", "_official", "x"}

// Generate returns the deduplicated, sorted set of candidates for seed. The
// lower-cased seed is always part of the set.
func Generate(seed string) []string {
	base := Lower(seed)

	set := map[string]struct{}{
		base:                               {},
		strings.ReplaceAll(base, ".", "_"): {},
		strings.ReplaceAll(base, "_", "."): {},
	}
	for _, s := range suffixes {
		set[base+s] = struct{}{}
	}

	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// ForSeed returns the identifiers a scan should cover. With permutations
// disabled only the seed itself is scanned, as typed.
func ForSeed(seed string, permutations bool) []string {
	if permutations {
		return Generate(seed)
	}
	return []string{strings.TrimSpace(seed)}
}

// Lower trims and lower-cases s using Unicode case rules.
func Lower(s string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(s))
}
