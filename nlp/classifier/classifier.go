// Package classifier is a multi-class averaged perceptron over n-gram and
// stem features.
package classifier

import (
	"context"
	"errors"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/oarkflow/arnlp/nlp/evaluate"
	"github.com/oarkflow/arnlp/nlp/ngram"
	"github.com/oarkflow/arnlp/nlp/perceptron"
	"github.com/oarkflow/arnlp/nlp/stemmer"
	"github.com/oarkflow/arnlp/nlp/stopwords"
)

type Options struct {
	NgramMax      int   `msgpack:"ngram_max"`
	Stem          bool  `msgpack:"stem"`
	DropStopwords bool  `msgpack:"drop_stopwords"`
	MaxIterations int   `msgpack:"-"`
	Seed          int64 `msgpack:"-"`
}

// Example is one training document.
type Example struct {
	Tokens []string
	Label  string
}

// Model is what gets stored in the artifact.
type Model struct {
	Options    Options          `msgpack:"options"`
	Perceptron perceptron.Model `msgpack:"perceptron"`
	Majority   string           `msgpack:"majority"`
}

var ErrNoExamples = errors.New("no training examples")

// Features turns a token sequence into a sorted feature list.
func (o Options) Features(tokens []string) []string {
	if o.DropStopwords {
		tokens = stopwords.Filter(tokens)
	}
	n := max(o.NgramMax, 1)
	grams := ngram.Range(tokens, n)
	feats := make([]string, 0, len(grams)*2+1)
	feats = append(feats, "bias")
	for _, g := range grams {
		feats = append(feats, "g="+g)
	}
	if o.Stem {
		seen := make(map[string]bool)
		for _, t := range tokens {
			s := stemmer.Stem(t)
			if !seen[s] {
				seen[s] = true
				feats = append(feats, "s="+s)
			}
		}
	}
	return feats
}

// Train fits a model. It returns ctx.Err() if cancelled between epochs.
func Train(ctx context.Context, examples []Example, opts Options) (*Model, evaluate.Report, error) {
	var rep evaluate.Report
	if len(examples) == 0 {
		return nil, rep, ErrNoExamples
	}
	labels, majority := labelSet(examples)
	index := make(map[string]int, len(labels))
	for i, l := range labels {
		index[l] = i
	}
	feats := make([][]string, len(examples))
	for i, ex := range examples {
		feats[i] = opts.Features(ex.Tokens)
	}

	tr := perceptron.NewTrainer(labels)
	rng := rand.New(rand.NewSource(opts.Seed))
	order := make([]int, len(examples))
	for i := range order {
		order[i] = i
	}
	for epoch := 1; epoch <= max(opts.MaxIterations, 1); epoch++ {
		if err := ctx.Err(); err != nil {
			return nil, rep, err
		}
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		mistakes := 0
		for _, i := range order {
			truth := index[examples[i].Label]
			guess := tr.Predict(feats[i])
			if guess != truth {
				tr.Update(feats[i], truth, guess)
				mistakes++
			}
			tr.Tick()
		}
		rep.Epochs = epoch
		if mistakes == 0 {
			break
		}
	}

	m := &Model{Options: opts, Perceptron: *tr.Average(), Majority: majority}
	pred := make([]string, len(examples))
	gold := make([]string, len(examples))
	base := make([]string, len(examples))
	for i, ex := range examples {
		pred[i] = m.label(feats[i])
		gold[i] = ex.Label
		base[i] = majority
	}
	rep.Metric = "accuracy"
	rep.Score = evaluate.Accuracy(pred, gold)
	rep.Baseline = evaluate.Accuracy(base, gold)
	rep.Examples = len(examples)
	rep.Classes = len(labels)
	return m, rep, nil
}

// labelSet returns the sorted labels and the most frequent one (ties go to
// the label that sorts first).
func labelSet(examples []Example) ([]string, string) {
	counts := make(map[string]int)
	for _, ex := range examples {
		counts[ex.Label]++
	}
	labels := make([]string, 0, len(counts))
	for l := range counts {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	majority := labels[0]
	for _, l := range labels {
		if counts[l] > counts[majority] {
			majority = l
		}
	}
	return labels, majority
}

// Predict returns the label for tokens. When every class scores zero, as for
// a document with no known features, it falls back to the majority label.
func (m *Model) Predict(tokens []string) string {
	return m.label(m.Options.Features(tokens))
}

func (m *Model) label(feats []string) string {
	scores := m.Perceptron.Scores(feats)
	if len(scores) == 0 || (floats.Max(scores) == 0 && floats.Min(scores) == 0) {
		return m.Majority
	}
	return m.Perceptron.Classes[floats.MaxIdx(scores)]
}
