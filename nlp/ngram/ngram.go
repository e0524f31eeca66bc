package ngram

import (
	"sort"
	"strings"
)

// ExtractNgrams returns frequency map of n-grams for a given n.
func ExtractNgrams(tokens []string, n int) map[string]int {
	counts := make(map[string]int)
	if n < 1 {
		return counts
	}
	for i := 0; i <= len(tokens)-n; i++ {
		counts[strings.Join(tokens[i:i+n], " ")]++
	}
	return counts
}

// Range returns the distinct n-grams of every order from 1 to max, sorted, so
// feature lists built from them are stable across runs.
func Range(tokens []string, max int) []string {
	var out []string
	for n := 1; n <= max; n++ {
		for gram := range ExtractNgrams(tokens, n) {
			out = append(out, gram)
		}
	}
	sort.Strings(out)
	return out
}
