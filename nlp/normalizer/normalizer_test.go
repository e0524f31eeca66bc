package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func defaultOptions() Options {
	return Options{
		StripDiacritics: true,
		StripTatweel:    true,
		NormalizeAlef:   true,
		Lowercase:       true,
		KeepPunctuation: true,
	}
}

func TestWordArabic(t *testing.T) {
	n := New(defaultOptions())
	tests := []struct {
		name     string
		in       string
		want     string
		wantDiac int
		wantTatw int
	}{
		{"plain", "كتاب", "كتاب", 0, 0},
		{"tashkeel", "كِتَابٌ", "كتاب", 3, 0},
		{"shadda and sukun", "مُدَرِّسْ", "مدرس", 5, 0},
		{"tatweel", "كـــتاب", "كتاب", 0, 3},
		{"alef with hamza", "أحمد", "احمد", 0, 0},
		{"alef madda", "آمن", "امن", 0, 0},
		{"bidi mark", "مرحبا\u200f", "مرحبا", 0, 0},
		{"mixed latin part lowered", "GPTعربي", "gptعربي", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, st := n.Word(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantDiac, st.Diacritics)
			assert.Equal(t, tt.wantTatw, st.Tatweel)
		})
	}
}

func TestWordOptionalLetterRules(t *testing.T) {
	opts := defaultOptions()
	opts.NormalizeYeh = true
	opts.NormalizeTehMarbuta = true
	n := New(opts)

	got, _ := n.Word("مدرسة على")
	assert.Equal(t, "مدرسه علي", got)

	got, _ = New(defaultOptions()).Word("مدرسة على")
	assert.Equal(t, "مدرسة على", got, "off by default")
}

func TestWordKeepsDiacriticsWhenDisabled(t *testing.T) {
	opts := defaultOptions()
	opts.StripDiacritics = false
	got, st := New(opts).Word("كِتَاب")
	assert.Equal(t, "كِتَاب", got)
	assert.Zero(t, st.Diacritics)
}

func TestWordLatin(t *testing.T) {
	n := New(defaultOptions())
	got, _ := n.Word("Café")
	assert.Equal(t, "cafe", got)

	got, _ = n.Word("HELLO")
	assert.Equal(t, "hello", got)
}

func TestTokensDropsEmptyAndPunct(t *testing.T) {
	got, st := New(defaultOptions()).Tokens([]string{"مرحبا", "ً", "،", "world"})
	assert.Equal(t, []string{"مرحبا", "،", "world"}, got)
	assert.Equal(t, 1, st.Diacritics)

	opts := defaultOptions()
	opts.KeepPunctuation = false
	got, _ = New(opts).Tokens([]string{"مرحبا", "،", "world", "!", "\u200f"})
	assert.Equal(t, []string{"مرحبا", "world"}, got)
}

func TestWordDropsControlAndFormatChars(t *testing.T) {
	n := New(defaultOptions())
	tests := []struct {
		in, want string
	}{
		{"hel\x01lo", "hello"},
		{"\x7f", ""},
		{"a\u0085b", "ab"},
		{"\u200fword", "word"},
		{"مر\x02حبا", "مرحبا"},
		{"\u200dجدا", "جدا"},
	}
	for _, tt := range tests {
		got, _ := n.Word(tt.in)
		assert.Equal(t, tt.want, got, "%q", tt.in)
	}
}

func TestIsPunct(t *testing.T) {
	assert.True(t, IsPunct("؟"))
	assert.True(t, IsPunct("..."))
	assert.True(t, IsPunct("+"))
	assert.False(t, IsPunct("و+"))
	assert.False(t, IsPunct(""))
}

func TestHasArabic(t *testing.T) {
	assert.True(t, HasArabic("abc جدا"))
	assert.False(t, HasArabic("hello"))
	assert.False(t, HasArabic("٣٤"), "Arabic-Indic digits are not letters")
}
