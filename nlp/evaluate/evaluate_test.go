package evaluate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccuracy(t *testing.T) {
	assert.Equal(t, 0.5, Accuracy([]string{"a", "b"}, []string{"a", "a"}))
	assert.Equal(t, 0.5, Accuracy([]string{"a"}, []string{"a", "a"}))
	assert.Zero(t, Accuracy(nil, nil))
}

func TestTokenAccuracy(t *testing.T) {
	pred := [][]string{{"O", "B-PER"}, {"O"}}
	gold := [][]string{{"O", "B-LOC"}, {"O"}}
	assert.InDelta(t, 2.0/3.0, TokenAccuracy(pred, gold), 1e-9)
	assert.Zero(t, TokenAccuracy(nil, [][]string{{}}))
}

func TestRouge1(t *testing.T) {
	ref := []string{"the", "cat", "sat", "."}
	assert.InDelta(t, 1.0, Rouge1([]string{"the", "cat", "sat"}, ref), 1e-9)
	// p = 2/4, r = 2/3
	assert.InDelta(t, 2*0.5*(2.0/3.0)/(0.5+2.0/3.0), Rouge1([]string{"the", "cat", "ran", "off"}, ref), 1e-9)
	assert.Zero(t, Rouge1([]string{"dog"}, ref))
	assert.Zero(t, Rouge1(nil, ref))
}

func TestOverlap(t *testing.T) {
	assert.Equal(t, 0.5, Overlap([]string{"a", "b", "."}, []string{"a"}))
	assert.Zero(t, Overlap([]string{"."}, []string{"a"}))
}

func TestReport(t *testing.T) {
	r := Report{Metric: "accuracy", Score: 0.9, Baseline: 0.5, Epochs: 3, Examples: 10, Classes: 2}
	assert.True(t, r.Beats())
	assert.Equal(t, 0.9, r.Metrics()["train_accuracy"])
	assert.Equal(t, 0.5, r.Metrics()["baseline_accuracy"])
	assert.False(t, Report{Score: 1, Baseline: 1}.Beats())
	assert.Contains(t, r.String(), "accuracy=0.9000")
}
