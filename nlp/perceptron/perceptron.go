// Package perceptron implements a sparse multi-class averaged perceptron over
// binary string features.
package perceptron

import (
	"gonum.org/v1/gonum/floats"
)

// Model is a trained, averaged weight table. The zero Model predicts nothing.
type Model struct {
	Classes []string             `msgpack:"classes"`
	Weights map[string][]float64 `msgpack:"weights"` // feature -> weight per class
}

// Scores sums the weight vectors of the active features.
func (m *Model) Scores(features []string) []float64 {
	scores := make([]float64, len(m.Classes))
	for _, f := range features {
		if w, ok := m.Weights[f]; ok {
			floats.Add(scores, w)
		}
	}
	return scores
}

// Predict returns the index of the best class. Ties go to the lower index.
func (m *Model) Predict(features []string) int {
	return argmax(m.Scores(features))
}

// Weight returns the per-class weights of a single feature, or nil.
func (m *Model) Weight(feature string) []float64 {
	return m.Weights[feature]
}

func argmax(scores []float64) int {
	if len(scores) == 0 {
		return -1
	}
	return floats.MaxIdx(scores)
}

// Trainer accumulates updates and averages them lazily, recording for every
// weight the step at which it last changed.
type Trainer struct {
	current Model
	totals  map[string][]float64
	stamps  map[string][]int
	step    int
}

func NewTrainer(classes []string) *Trainer {
	return &Trainer{
		current: Model{Classes: classes, Weights: make(map[string][]float64)},
		totals:  make(map[string][]float64),
		stamps:  make(map[string][]int),
	}
}

// Model exposes the live (unaveraged) weights for decoding during training.
func (t *Trainer) Model() *Model { return &t.current }

func (t *Trainer) Predict(features []string) int { return t.current.Predict(features) }

// Update moves the weights toward truth and away from guess.
func (t *Trainer) Update(features []string, truth, guess int) {
	if truth == guess {
		return
	}
	t.Adjust(features, truth, 1)
	t.Adjust(features, guess, -1)
}

// Adjust adds delta to the weight of every feature for one class.
func (t *Trainer) Adjust(features []string, class int, delta float64) {
	n := len(t.current.Classes)
	for _, f := range features {
		w, ok := t.current.Weights[f]
		if !ok {
			w = make([]float64, n)
			t.current.Weights[f] = w
			t.totals[f] = make([]float64, n)
			t.stamps[f] = make([]int, n)
		}
		t.totals[f][class] += float64(t.step-t.stamps[f][class]) * w[class]
		t.stamps[f][class] = t.step
		w[class] += delta
	}
}

// Tick marks the end of one training example.
func (t *Trainer) Tick() { t.step++ }

// Average returns the averaged model. Features whose averaged weights are all
// zero are dropped.
func (t *Trainer) Average() *Model {
	m := &Model{Classes: t.current.Classes, Weights: make(map[string][]float64, len(t.current.Weights))}
	steps := float64(max(t.step, 1))
	for f, w := range t.current.Weights {
		avg := make([]float64, len(w))
		for c := range w {
			total := t.totals[f][c] + float64(t.step-t.stamps[f][c])*w[c]
			avg[c] = total / steps
		}
		if floats.Norm(avg, 1) != 0 {
			m.Weights[f] = avg
		}
	}
	return m
}
