package normalizer

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

const tatweel = 'ـ' // U+0640

type Options struct {
	StripDiacritics     bool
	StripTatweel        bool
	NormalizeAlef       bool
	NormalizeYeh        bool
	NormalizeTehMarbuta bool
	Lowercase           bool
	KeepPunctuation     bool
}

// Stats counts what normalization removed.
type Stats struct {
	Diacritics int
	Tatweel    int
}

func (s *Stats) Add(o Stats) {
	s.Diacritics += o.Diacritics
	s.Tatweel += o.Tatweel
}

// Normalizer applies Options to single words. It is not safe for concurrent use.
type Normalizer struct {
	opts  Options
	lower cases.Caser
}

func New(opts Options) *Normalizer {
	return &Normalizer{opts: opts, lower: cases.Lower(language.Und)}
}

// IsArabicDiacritic reports whether r is a tashkeel mark (harakat, tanween,
// shadda, sukun, the Quranic marks up to U+065F, and superscript alef).
func IsArabicDiacritic(r rune) bool {
	return (r >= 0x064B && r <= 0x065F) || r == 0x0670
}

// IsArabicLetter reports whether r is a letter of the Arabic script.
func IsArabicLetter(r rune) bool {
	return unicode.IsLetter(r) && unicode.Is(unicode.Arabic, r)
}

// HasArabic reports whether s contains an Arabic letter.
func HasArabic(s string) bool {
	for _, r := range s {
		if IsArabicLetter(r) {
			return true
		}
	}
	return false
}

// Word normalizes one token. Arabic words get letter-level rules; other words
// get the generic NFD mark stripping. Format characters (bidi marks, ZWJ/ZWNJ)
// and C0/C1 controls are always dropped.
func (n *Normalizer) Word(w string) (string, Stats) {
	var st Stats
	if !arabicScript(w) {
		if n.opts.StripDiacritics {
			w = norm.NFC.String(RemoveDiacritics(w))
		}
		if n.opts.Lowercase {
			w = n.lower.String(w)
		}
		return stripFormat(w), st
	}

	var b strings.Builder
	b.Grow(len(w))
	for _, r := range w {
		switch {
		case invisible(r):
			continue
		case n.opts.StripDiacritics && IsArabicDiacritic(r):
			st.Diacritics++
			continue
		case n.opts.StripTatweel && r == tatweel:
			st.Tatweel++
			continue
		case n.opts.NormalizeAlef && (r == 'أ' || r == 'إ' || r == 'آ' || r == 'ٱ'):
			r = 'ا'
		case n.opts.NormalizeYeh && r == 'ى':
			r = 'ي'
		case n.opts.NormalizeTehMarbuta && r == 'ة':
			r = 'ه'
		}
		b.WriteRune(r)
	}
	out := b.String()
	if n.opts.Lowercase {
		// mixed tokens such as "GPT٤" still need their Latin part lowered
		out = n.lower.String(out)
	}
	return out, st
}

// Tokens normalizes every token and drops the ones that end up empty, or are
// pure punctuation when KeepPunctuation is off. A token that normalizes to
// several space-separated words yields each of them.
func (n *Normalizer) Tokens(tokens []string) ([]string, Stats) {
	var total Stats
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		w, st := n.Word(t)
		total.Add(st)
		for _, part := range strings.Fields(w) {
			if !n.opts.KeepPunctuation && IsPunct(part) {
				continue
			}
			out = append(out, part)
		}
	}
	return out, total
}

// IsPunct reports whether every rune of s is punctuation or a symbol.
func IsPunct(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsPunct(r) && !unicode.IsSymbol(r) {
			return false
		}
	}
	return true
}

// RemoveDiacritics decomposes and strips combining marks.
func RemoveDiacritics(s string) string {
	t := norm.NFD.String(s)
	return strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Mn, r) {
			return -1
		}
		return r
	}, t)
}

// arabicScript also matches a stray mark with no base letter.
func arabicScript(s string) bool {
	for _, r := range s {
		if IsArabicDiacritic(r) || unicode.Is(unicode.Arabic, r) {
			return true
		}
	}
	return false
}

func invisible(r rune) bool {
	return unicode.Is(unicode.Cf, r) || unicode.IsControl(r)
}

func stripFormat(s string) string {
	return strings.Map(func(r rune) rune {
		if invisible(r) {
			return -1
		}
		return r
	}, s)
}
