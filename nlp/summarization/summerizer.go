package summarization

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/oarkflow/arnlp/nlp/evaluate"
	"github.com/oarkflow/arnlp/nlp/normalizer"
	"github.com/oarkflow/arnlp/nlp/segmenter"
	"github.com/oarkflow/arnlp/nlp/tfidf"
)

// Sentence features, in order: bias, mean IDF, position, is-first, relative
// length, similarity to the whole document.
const numFeatures = 6

var ErrNoExamples = errors.New("no training examples")

type Options struct {
	OverlapThreshold float64 `msgpack:"overlap_threshold"`
	MaxSentences     int     `msgpack:"max_sentences"`
	MaxIterations    int     `msgpack:"-"`
	Seed             int64   `msgpack:"-"`
}

type Example struct {
	Tokens  []string
	Summary []string
}

// Summarizer picks the Length best-scoring sentences of a document.
type Summarizer struct {
	Options   Options            `msgpack:"options"`
	IDF       map[string]float64 `msgpack:"idf"`
	UnseenIDF float64            `msgpack:"unseen_idf"`
	Weights   []float64          `msgpack:"weights"`
	Length    int                `msgpack:"length"`
}

func (s *Summarizer) featurize(sentences [][]string) [][]float64 {
	corp := tfidf.FromIDF(s.IDF, s.UnseenIDF, sentences)
	var doc []string
	longest := 1
	for _, sent := range sentences {
		doc = append(doc, sent...)
		longest = max(longest, len(sent))
	}
	centroid := corp.Similarities(doc)
	out := make([][]float64, len(sentences))
	for i, sent := range sentences {
		mass, words := 0.0, 0
		for _, w := range sent {
			if normalizer.IsPunct(w) {
				continue
			}
			mass += corp.Weight(w)
			words++
		}
		if words > 0 && s.UnseenIDF > 0 {
			mass /= float64(words) * s.UnseenIDF
		}
		first := 0.0
		if i == 0 {
			first = 1
		}
		out[i] = []float64{1, mass, 1 / float64(i+1), first, float64(len(sent)) / float64(longest), centroid[i]}
	}
	return out
}

// pick returns the indices of the k best sentences in document order.
func (s *Summarizer) pick(features [][]float64, k int) []int {
	idx := make([]int, len(features))
	scores := make([]float64, len(features))
	for i, x := range features {
		idx[i] = i
		if len(s.Weights) == numFeatures {
			scores[i] = floats.Dot(s.Weights, x)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] > scores[idx[b]] })
	idx = idx[:min(k, len(idx))]
	sort.Ints(idx)
	return idx
}

// Summarize returns the extracted summary tokens.
func (s *Summarizer) Summarize(tokens []string) []string {
	sentences := segmenter.SentenceSplit(tokens)
	if len(sentences) == 0 {
		return nil
	}
	var out []string
	for _, i := range s.pick(s.featurize(sentences), s.Length) {
		out = append(out, sentences[i]...)
	}
	return out
}

func lead(tokens []string, k int) []string {
	var out []string
	for i, sent := range segmenter.SentenceSplit(tokens) {
		if i == k {
			break
		}
		out = append(out, sent...)
	}
	return out
}

// summaryLength is the mean reference length in sentences, rounded and
// clamped to [1, maxSentences].
func summaryLength(examples []Example, maxSentences int) int {
	total := 0
	for _, ex := range examples {
		total += len(segmenter.SentenceSplit(ex.Summary))
	}
	n := int(math.Round(float64(total) / float64(len(examples))))
	if maxSentences > 0 {
		n = min(n, maxSentences)
	}
	return max(n, 1)
}

type sample struct {
	x []float64
	y float64
}

// Train learns IDF weights over all training sentences and a linear sentence
// scorer. A sentence is a positive example when at least OverlapThreshold of
// its words occur in the reference; a document with no such sentence
// contributes its best-overlapping one instead.
func Train(ctx context.Context, examples []Example, opts Options) (*Summarizer, evaluate.Report, error) {
	var rep evaluate.Report
	if len(examples) == 0 {
		return nil, rep, ErrNoExamples
	}
	docs := make([][][]string, len(examples))
	var all [][]string
	for i, ex := range examples {
		docs[i] = segmenter.SentenceSplit(ex.Tokens)
		all = append(all, docs[i]...)
	}
	corp := tfidf.NewCorpus(all)
	s := &Summarizer{
		Options:   opts,
		IDF:       corp.IDF,
		UnseenIDF: corp.Unseen,
		Length:    summaryLength(examples, opts.MaxSentences),
	}

	var samples []sample
	for i, sentences := range docs {
		if len(sentences) == 0 {
			continue
		}
		feats := s.featurize(sentences)
		best, bestOverlap, positives := 0, 0.0, 0
		start := len(samples)
		for j, sent := range sentences {
			ov := evaluate.Overlap(sent, examples[i].Summary)
			y := -1.0
			if ov >= opts.OverlapThreshold && ov > 0 {
				y = 1
				positives++
			}
			if ov > bestOverlap {
				best, bestOverlap = j, ov
			}
			samples = append(samples, sample{x: feats[j], y: y})
		}
		if positives == 0 && bestOverlap > 0 {
			samples[start+best].y = 1
		}
	}

	w := make([]float64, numFeatures)
	sum := make([]float64, numFeatures)
	steps := 0
	rng := rand.New(rand.NewSource(opts.Seed))
	order := make([]int, len(samples))
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
			sm := samples[i]
			if floats.Dot(w, sm.x)*sm.y <= 0 {
				floats.AddScaled(w, sm.y, sm.x)
				mistakes++
			}
			floats.Add(sum, w)
			steps++
		}
		rep.Epochs = epoch
		if mistakes == 0 {
			break
		}
	}
	if steps > 0 {
		floats.Scale(1/float64(steps), sum)
	}
	s.Weights = sum

	modelScore, leadScore := 0.0, 0.0
	for _, ex := range examples {
		modelScore += evaluate.Rouge1(s.Summarize(ex.Tokens), ex.Summary)
		leadScore += evaluate.Rouge1(lead(ex.Tokens, s.Length), ex.Summary)
	}
	n := float64(len(examples))
	rep.Metric = "rouge1_f1"
	rep.Score = modelScore / n
	rep.Baseline = leadScore / n
	rep.Examples = len(examples)
	rep.Classes = 2
	return s, rep, nil
}
