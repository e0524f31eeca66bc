package stemmer

import (
	"strings"
	"unicode/utf8"

	"github.com/oarkflow/arnlp/nlp/normalizer"
)

// Light stemming affixes over normalized text (alef variants already folded).
var (
	arPrefixes = []string{"وال", "بال", "كال", "فال", "لل", "ال"}
	arSuffixes = []string{"ها", "ان", "ات", "ون", "ين", "يه", "ية", "ه", "ة", "ي"}
)

// LightStem removes at most one article-bearing prefix, a leading و, and then
// suffixes while at least three letters remain.
func LightStem(word string) string {
	if utf8.RuneCountInString(word) > 3 && strings.HasPrefix(word, "و") {
		word = strings.TrimPrefix(word, "و")
	}
	for _, p := range arPrefixes {
		if strings.HasPrefix(word, p) && utf8.RuneCountInString(word)-utf8.RuneCountInString(p) >= 2 {
			word = strings.TrimPrefix(word, p)
			break
		}
	}
	for _, s := range arSuffixes {
		if strings.HasSuffix(word, s) && utf8.RuneCountInString(word)-utf8.RuneCountInString(s) >= 3 {
			word = strings.TrimSuffix(word, s)
		}
	}
	return word
}

// Stem dispatches on script.
func Stem(word string) string {
	if normalizer.HasArabic(word) {
		return LightStem(word)
	}
	return PorterStem(word)
}
