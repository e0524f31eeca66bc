package langdetect

import (
	"unicode"

	"github.com/oarkflow/arnlp/nlp/stopwords"
)

// Script names the writing system of a line's letters.
type Script string

const (
	ScriptNone   Script = "none"
	ScriptArabic Script = "arabic"
	ScriptLatin  Script = "latin"
	ScriptMixed  Script = "mixed"
	ScriptOther  Script = "other"
)

// DetectScript classifies tokens by the scripts of their letters. Digits and
// punctuation do not count.
func DetectScript(tokens []string) Script {
	arabic, latin, other := 0, 0, 0
	for _, w := range tokens {
		for _, r := range w {
			if !unicode.IsLetter(r) {
				continue
			}
			switch {
			case unicode.Is(unicode.Arabic, r):
				arabic++
			case unicode.Is(unicode.Latin, r):
				latin++
			default:
				other++
			}
		}
	}
	switch {
	case arabic+latin+other == 0:
		return ScriptNone
	case arabic > 0 && latin == 0 && other == 0:
		return ScriptArabic
	case latin > 0 && arabic == 0 && other == 0:
		return ScriptLatin
	case arabic == 0 && latin == 0:
		return ScriptOther
	}
	return ScriptMixed
}

// Detect returns "ar" or "en" by stopword overlap, falling back to the
// dominant script. It returns "" when there is nothing to go on.
func Detect(tokens []string) string {
	ar, en := 0, 0
	for _, w := range tokens {
		if _, ok := stopwords.Arabic[w]; ok {
			ar++
		}
		if _, ok := stopwords.English[w]; ok {
			en++
		}
	}
	switch {
	case ar > en:
		return "ar"
	case en > ar:
		return "en"
	}
	switch DetectScript(tokens) {
	case ScriptArabic:
		return "ar"
	case ScriptLatin:
		return "en"
	}
	return ""
}
