package morphology

import (
	"strings"
	"unicode/utf8"
)

// Marker is appended to a detached proclitic so it cannot be confused with a
// standalone word.
const Marker = "+"

const article = "ال"

// minStem is the number of letters that must follow the article for a split
// to be trusted. It keeps "بالغ" or "لله" whole.
const minStem = 2

func isConjunction(r rune) bool { return r == 'و' || r == 'ف' }
func isPreposition(r rune) bool { return r == 'ب' || r == 'ك' }

// SplitClitics detaches a conjunction (و, ف) and a preposition (ب, ك, ل) from
// a word that carries the definite article. "وبالكتاب" yields clitics
// ["و+", "ب+"] and stem "الكتاب"; "للطالب" yields ["ل+"] and "الطالب".
// Words without a well-formed article come back unchanged.
func SplitClitics(word string) (clitics []string, stem string) {
	stem = word
	r, size := utf8.DecodeRuneInString(stem)
	if isConjunction(r) {
		if rest := stem[size:]; definite(rest) {
			clitics = append(clitics, string(r)+Marker)
			stem = rest
			r, size = utf8.DecodeRuneInString(stem)
		}
	}
	switch {
	case isPreposition(r):
		if rest := stem[size:]; strings.HasPrefix(rest, article) && hasStem(rest) {
			clitics = append(clitics, string(r)+Marker)
			stem = rest
		}
	case r == 'ل':
		// ل + ال contracts to لل
		if rest := stem[size:]; strings.HasPrefix(rest, "ل") {
			full := "ا" + rest
			if hasStem(full) {
				clitics = append(clitics, "ل"+Marker)
				stem = full
			}
		}
	}
	return clitics, stem
}

// Segment returns the clitics followed by the stem.
func Segment(word string) []string {
	clitics, stem := SplitClitics(word)
	if len(clitics) == 0 {
		return []string{word}
	}
	return append(clitics, stem)
}

// IsClitic reports whether tok is a detached proclitic.
func IsClitic(tok string) bool {
	return utf8.RuneCountInString(tok) == 2 && strings.HasSuffix(tok, Marker)
}

// definite reports whether s begins with the article, directly or behind one
// preposition, with a long enough stem.
func definite(s string) bool {
	if strings.HasPrefix(s, article) {
		return hasStem(s)
	}
	r, size := utf8.DecodeRuneInString(s)
	rest := s[size:]
	switch {
	case isPreposition(r):
		return strings.HasPrefix(rest, article) && hasStem(rest)
	case r == 'ل':
		return strings.HasPrefix(rest, "ل") && hasStem("ا"+rest)
	}
	return false
}

func hasStem(s string) bool {
	return strings.HasPrefix(s, article) && utf8.RuneCountInString(s)-2 >= minStem
}
