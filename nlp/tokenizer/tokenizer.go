package tokenizer

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rivo/uniseg"
	"golang.org/x/text/unicode/norm"

	"github.com/oarkflow/arnlp/nlp/morphology"
	"github.com/oarkflow/arnlp/nlp/normalizer"
)

type Mode string

const (
	ModeUAX29 Mode = "uax29"
	ModeRegex Mode = "regex"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeUAX29, "":
		return ModeUAX29, nil
	case ModeRegex:
		return ModeRegex, nil
	}
	return "", fmt.Errorf("unknown tokenizer %q (want uax29|regex)", s)
}

// TokenizeSubwords splits text into words, numbers and single punctuation
// marks, preserving internal apostrophes. Unicode spaces and control
// characters separate tokens and never form one.
var reToken = regexp.MustCompile(`[’']?[\pL\pM]+(?:[’'][\pL\pM]+)*[’']?|\pN+|[^\s\p{Z}\p{Cc}\pL\pM\pN]`)

func TokenizeSubwords(text string) []string {
	return reToken.FindAllString(text, -1)
}

// Words returns the UAX #29 word segments of text, skipping whitespace and
// control runs.
func Words(text string) []string {
	var out []string
	state := -1
	var word string
	for len(text) > 0 {
		word, text, state = uniseg.FirstWordInString(text, state)
		if blank(word) {
			continue
		}
		out = append(out, word)
	}
	return out
}

func blank(s string) bool {
	for _, r := range s {
		if !unicode.IsSpace(r) && !unicode.IsControl(r) {
			return false
		}
	}
	return true
}

type Options struct {
	Mode         Mode
	Normalize    normalizer.Options
	SplitClitics bool
	CacheSize    int
}

// Stats accumulates per-line counters for metadata.
type Stats struct {
	normalizer.Stats
	Clitics int
}

func (s *Stats) Add(o Stats) {
	s.Stats.Add(o.Stats)
	s.Clitics += o.Clitics
}

type analysis struct {
	tokens []string
	stats  Stats
}

// Tokenizer turns raw lines into normalized tokens. Word analyses are
// memoized in an LRU cache; a Tokenizer is not safe for concurrent use.
type Tokenizer struct {
	opts  Options
	norm  *normalizer.Normalizer
	cache *lru.Cache[string, analysis]
}

func New(opts Options) (*Tokenizer, error) {
	if opts.Mode == "" {
		opts.Mode = ModeUAX29
	}
	if _, err := ParseMode(string(opts.Mode)); err != nil {
		return nil, err
	}
	t := &Tokenizer{opts: opts, norm: normalizer.New(opts.Normalize)}
	if opts.CacheSize > 0 {
		cache, err := lru.New[string, analysis](opts.CacheSize)
		if err != nil {
			return nil, err
		}
		t.cache = cache
	}
	return t, nil
}

// Tokenize returns the tokens of text. No token is empty or contains
// whitespace, so strings.Join(tokens, " ") is a cleaned line.
func (t *Tokenizer) Tokenize(text string) ([]string, Stats) {
	var total Stats
	text = norm.NFC.String(text)
	var words []string
	if t.opts.Mode == ModeRegex {
		words = TokenizeSubwords(text)
	} else {
		words = Words(text)
	}
	out := make([]string, 0, len(words))
	for _, w := range words {
		a := t.analyze(w)
		total.Add(a.stats)
		out = append(out, a.tokens...)
	}
	return out, total
}

func (t *Tokenizer) analyze(word string) analysis {
	if t.cache != nil {
		if a, ok := t.cache.Get(word); ok {
			return a
		}
	}
	var a analysis
	parts, st := t.norm.Tokens([]string{word})
	a.stats.Stats = st
	for _, part := range parts {
		if t.opts.SplitClitics && normalizer.HasArabic(part) {
			seg := morphology.Segment(part)
			a.stats.Clitics += len(seg) - 1
			a.tokens = append(a.tokens, seg...)
			continue
		}
		a.tokens = append(a.tokens, part)
	}
	if t.cache != nil {
		t.cache.Add(word, a)
	}
	return a
}
