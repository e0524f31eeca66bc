// Package ner tags token sequences with BIO entity labels using a structured
// averaged perceptron and Viterbi decoding.
package ner

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/oarkflow/arnlp/nlp/evaluate"
	"github.com/oarkflow/arnlp/nlp/morphology"
	"github.com/oarkflow/arnlp/nlp/perceptron"
	"github.com/oarkflow/arnlp/nlp/stemmer"
)

const (
	Outside  = "O"
	startTag = "<s>"
	// penalty keeps BIO-invalid transitions out of the best path without
	// making it unreachable when the tag set itself is malformed.
	penalty = -1e6
)

var ErrNoExamples = errors.New("no training examples")

type Options struct {
	AffixLength   int   `msgpack:"affix_length"`
	MaxIterations int   `msgpack:"-"`
	Seed          int64 `msgpack:"-"`
}

type Example struct {
	Tokens []string
	Tags   []string
}

type Model struct {
	Options    Options          `msgpack:"options"`
	Perceptron perceptron.Model `msgpack:"perceptron"`
	Gazetteer  Gazetteer        `msgpack:"gazetteer"`
}

func (o Options) features(tokens []string, i int, gaz Gazetteer) []string {
	w := tokens[i]
	prev, next := "<s>", "</s>"
	if i > 0 {
		prev = tokens[i-1]
	}
	if i+1 < len(tokens) {
		next = tokens[i+1]
	}
	feats := []string{
		"bias",
		"w=" + w,
		"w-1=" + prev,
		"w+1=" + next,
		"shape=" + shape(w),
		"script=" + script(w),
		"stem=" + stemmer.Stem(w),
	}
	if k := o.AffixLength; k > 0 && utf8.RuneCountInString(w) > k {
		r := []rune(w)
		feats = append(feats, "p="+string(r[:k]), "x="+string(r[len(r)-k:]))
	}
	if i == 0 {
		feats = append(feats, "first")
	}
	if strings.HasPrefix(w, "ال") {
		feats = append(feats, "definite")
	}
	if morphology.IsClitic(w) {
		feats = append(feats, "clitic")
	}
	if i > 0 && morphology.IsClitic(prev) {
		feats = append(feats, "after="+prev)
	}
	if typ, ok := gaz[w]; ok {
		feats = append(feats, "gaz="+typ)
	}
	if i > 0 {
		if typ, ok := gaz[prev]; ok {
			feats = append(feats, "gaz-1="+typ)
		}
	}
	return feats
}

// shape maps letters to x/X/a, digits to d and collapses repeats: "Cairo2"
// becomes "Xxd", "القاهرة" becomes "a".
func shape(w string) string {
	var b strings.Builder
	var last rune
	for _, r := range w {
		var c rune
		switch {
		case unicode.IsDigit(r):
			c = 'd'
		case unicode.Is(unicode.Arabic, r) && unicode.IsLetter(r):
			c = 'a'
		case unicode.IsUpper(r):
			c = 'X'
		case unicode.IsLetter(r):
			c = 'x'
		default:
			c = r
		}
		if c != last {
			b.WriteRune(c)
			last = c
		}
	}
	return b.String()
}

func script(w string) string {
	for _, r := range w {
		switch {
		case unicode.IsDigit(r):
			return "digit"
		case unicode.Is(unicode.Arabic, r):
			return "arabic"
		case unicode.Is(unicode.Latin, r):
			return "latin"
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			return "punct"
		}
	}
	return "other"
}

func transition(tag string) string { return "prev=" + tag }

// allowed reports whether tag may follow prev under BIO.
func allowed(prev, tag string) bool {
	if !strings.HasPrefix(tag, "I-") {
		return true
	}
	typ := tag[2:]
	return prev == "B-"+typ || prev == "I-"+typ
}

// viterbi returns the best tag index sequence for the given per-token
// features under model m.
func viterbi(m *perceptron.Model, feats [][]string) []int {
	n, T := len(m.Classes), len(feats)
	if T == 0 || n == 0 {
		return []int{}
	}
	trans := make([][]float64, n+1) // index n is the start state
	for p := 0; p <= n; p++ {
		prevTag := startTag
		if p < n {
			prevTag = m.Classes[p]
		}
		row := make([]float64, n)
		if w := m.Weight(transition(prevTag)); w != nil {
			copy(row, w)
		}
		for c := range row {
			if !allowed(prevTag, m.Classes[c]) {
				row[c] += penalty
			}
		}
		trans[p] = row
	}

	score := make([][]float64, T)
	back := make([][]int, T)
	emit := m.Scores(feats[0])
	score[0] = make([]float64, n)
	back[0] = make([]int, n)
	for c := 0; c < n; c++ {
		score[0][c] = emit[c] + trans[n][c]
		back[0][c] = n
	}
	for i := 1; i < T; i++ {
		emit = m.Scores(feats[i])
		score[i] = make([]float64, n)
		back[i] = make([]int, n)
		for c := 0; c < n; c++ {
			best, arg := 0.0, -1
			for p := 0; p < n; p++ {
				s := score[i-1][p] + trans[p][c]
				if arg < 0 || s > best {
					best, arg = s, p
				}
			}
			score[i][c] = best + emit[c]
			back[i][c] = arg
		}
	}
	path := make([]int, T)
	last := 0
	for c := 1; c < n; c++ {
		if score[T-1][c] > score[T-1][last] {
			last = c
		}
	}
	for i := T - 1; i >= 0; i-- {
		path[i] = last
		last = back[i][last]
	}
	return path
}

func (m *Model) sentenceFeatures(tokens []string) [][]string {
	feats := make([][]string, len(tokens))
	for i := range tokens {
		feats[i] = m.Options.features(tokens, i, m.Gazetteer)
	}
	return feats
}

// Predict tags tokens.
func (m *Model) Predict(tokens []string) []string {
	path := viterbi(&m.Perceptron, m.sentenceFeatures(tokens))
	tags := make([]string, len(path))
	for i, c := range path {
		tags[i] = m.Perceptron.Classes[c]
	}
	return tags
}

// tagSet returns the tags with O first, then the rest sorted, so an untrained
// model defaults to O.
func tagSet(examples []Example) []string {
	seen := map[string]bool{Outside: true}
	var rest []string
	for _, ex := range examples {
		for _, t := range ex.Tags {
			if !seen[t] {
				seen[t] = true
				rest = append(rest, t)
			}
		}
	}
	sort.Strings(rest)
	return append([]string{Outside}, rest...)
}

// Train fits a model. Sentences are shuffled with opts.Seed before every epoch.
func Train(ctx context.Context, examples []Example, opts Options) (*Model, evaluate.Report, error) {
	var rep evaluate.Report
	if len(examples) == 0 {
		return nil, rep, ErrNoExamples
	}
	tags := tagSet(examples)
	index := make(map[string]int, len(tags))
	for i, t := range tags {
		index[t] = i
	}
	sentences := make([][]string, len(examples))
	gold := make([][]string, len(examples))
	for i, ex := range examples {
		sentences[i], gold[i] = ex.Tokens, ex.Tags
	}

	m := &Model{Options: opts, Gazetteer: BuildGazetteer(sentences, gold)}
	feats := make([][][]string, len(examples))
	for i, ex := range examples {
		feats[i] = m.sentenceFeatures(ex.Tokens)
	}

	tr := perceptron.NewTrainer(tags)
	rng := rand.New(rand.NewSource(opts.Seed))
	order := rng.Perm(len(examples))
	for epoch := 1; epoch <= max(opts.MaxIterations, 1); epoch++ {
		if err := ctx.Err(); err != nil {
			return nil, rep, err
		}
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		mistakes := 0
		for _, s := range order {
			guess := viterbi(tr.Model(), feats[s])
			if update(tr, feats[s], examples[s].Tags, guess, index) {
				mistakes++
			}
			tr.Tick()
		}
		rep.Epochs = epoch
		if mistakes == 0 {
			break
		}
	}

	m.Perceptron = *tr.Average()
	pred := make([][]string, len(examples))
	outside := make([][]string, len(examples))
	for i, ex := range examples {
		pred[i] = m.Predict(ex.Tokens)
		outside[i] = make([]string, len(ex.Tokens))
		for j := range outside[i] {
			outside[i][j] = Outside
		}
	}
	rep.Metric = "token_accuracy"
	rep.Score = evaluate.TokenAccuracy(pred, gold)
	rep.Baseline = evaluate.TokenAccuracy(outside, gold)
	rep.Examples = len(examples)
	rep.Classes = len(tags)
	return m, rep, nil
}

// update applies the structured perceptron step and reports whether the
// guess was wrong.
func update(tr *perceptron.Trainer, feats [][]string, gold []string, guess []int, index map[string]int) bool {
	classes := tr.Model().Classes
	wrong := false
	for i := range gold {
		if index[gold[i]] != guess[i] {
			wrong = true
			break
		}
	}
	if !wrong {
		return false
	}
	goldPrev, guessPrev := startTag, startTag
	for i := range gold {
		g, h := index[gold[i]], guess[i]
		if g != h || goldPrev != guessPrev {
			tr.Adjust(append(feats[i][:len(feats[i]):len(feats[i])], transition(goldPrev)), g, 1)
			tr.Adjust(append(feats[i][:len(feats[i]):len(feats[i])], transition(guessPrev)), h, -1)
		}
		goldPrev, guessPrev = gold[i], classes[h]
	}
	return true
}
