// Package evaluate scores predictions against references.
package evaluate

import (
	"fmt"

	"github.com/oarkflow/arnlp/nlp/normalizer"
)

// Report summarizes a training run.
type Report struct {
	Metric   string  // name of Score, e.g. "accuracy"
	Score    float64 // final score of the averaged model on the training set
	Baseline float64 // trivial baseline on the same data
	Epochs   int     // epochs actually run
	Examples int
	Classes  int
}

// Beats reports whether the model improved on its baseline.
func (r Report) Beats() bool { return r.Score > r.Baseline }

func (r Report) String() string {
	return fmt.Sprintf("%s=%.4f baseline=%.4f epochs=%d examples=%d", r.Metric, r.Score, r.Baseline, r.Epochs, r.Examples)
}

// Metrics renders r for storage in an artifact.
func (r Report) Metrics() map[string]float64 {
	return map[string]float64{
		"train_" + r.Metric:    r.Score,
		"baseline_" + r.Metric: r.Baseline,
		"epochs":               float64(r.Epochs),
		"examples":             float64(r.Examples),
		"classes":              float64(r.Classes),
	}
}

// Accuracy is the fraction of equal pairs. Empty input scores 0.
func Accuracy(pred, gold []string) float64 {
	if len(gold) == 0 {
		return 0
	}
	hit := 0
	for i := range gold {
		if i < len(pred) && pred[i] == gold[i] {
			hit++
		}
	}
	return float64(hit) / float64(len(gold))
}

// TokenAccuracy is Accuracy over all tag positions of all sequences.
func TokenAccuracy(pred, gold [][]string) float64 {
	hit, total := 0, 0
	for i := range gold {
		for j := range gold[i] {
			total++
			if i < len(pred) && j < len(pred[i]) && pred[i][j] == gold[i][j] {
				hit++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(hit) / float64(total)
}

// Rouge1 returns the ROUGE-1 F1 of a candidate against a reference, counting
// clipped unigram overlap. Punctuation tokens are ignored.
func Rouge1(candidate, reference []string) float64 {
	ref := counts(reference)
	cand := counts(candidate)
	refTotal, candTotal, overlap := 0, 0, 0
	for _, n := range ref {
		refTotal += n
	}
	for w, n := range cand {
		candTotal += n
		overlap += min(n, ref[w])
	}
	if overlap == 0 {
		return 0
	}
	p := float64(overlap) / float64(candTotal)
	r := float64(overlap) / float64(refTotal)
	return 2 * p * r / (p + r)
}

// Overlap is the share of tokens in sent that also occur in reference.
func Overlap(sent, reference []string) float64 {
	ref := counts(reference)
	total, hit := 0, 0
	for w, n := range counts(sent) {
		total += n
		hit += min(n, ref[w])
	}
	if total == 0 {
		return 0
	}
	return float64(hit) / float64(total)
}

func counts(tokens []string) map[string]int {
	m := make(map[string]int, len(tokens))
	for _, t := range tokens {
		if normalizer.IsPunct(t) {
			continue
		}
		m[t]++
	}
	return m
}
