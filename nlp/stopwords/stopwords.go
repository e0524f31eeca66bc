package stopwords

import (
	"bufio"
	_ "embed"
	"strings"
)

//go:embed data/arabic.txt
var arabicList string

//go:embed data/english.txt
var englishList string

// Arabic holds normalized Arabic function words, including the clitic
// markers emitted by segmentation. English holds lowercase English ones.
var (
	Arabic  = parse(arabicList)
	English = parse(englishList)
)

func parse(list string) map[string]struct{} {
	set := make(map[string]struct{})
	scan := bufio.NewScanner(strings.NewReader(list))
	for scan.Scan() {
		w := strings.TrimSpace(scan.Text())
		if w != "" {
			set[w] = struct{}{}
		}
	}
	return set
}

// IsStop reports whether w is in either list.
func IsStop(w string) bool {
	if _, ok := Arabic[w]; ok {
		return true
	}
	_, ok := English[w]
	return ok
}

// Filter removes any token present in the stopword sets.
func Filter(tokens []string) []string {
	var out []string
	for _, t := range tokens {
		if !IsStop(t) {
			out = append(out, t)
		}
	}
	return out
}
