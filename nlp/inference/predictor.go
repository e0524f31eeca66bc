// Package inference runs a trained artifact over cleaned text.
package inference

import (
	"errors"
	"fmt"
	"strings"

	"github.com/oarkflow/arnlp/nlp/artifact"
	"github.com/oarkflow/arnlp/nlp/classifier"
	"github.com/oarkflow/arnlp/nlp/ner"
	"github.com/oarkflow/arnlp/nlp/summarization"
	"github.com/oarkflow/arnlp/nlp/task"
)

// Prediction is one document's output. Only the field for Task is set.
type Prediction struct {
	Task    task.Type
	Label   string
	Tags    []string
	Summary []string
}

// Text renders the prediction as a single output line.
func (p Prediction) Text() string {
	switch p.Task {
	case task.NER:
		return strings.Join(p.Tags, " ")
	case task.Summarization:
		return strings.Join(p.Summary, " ")
	}
	return p.Label
}

// Value is the JSON form of the prediction.
func (p Prediction) Value() any {
	switch p.Task {
	case task.NER:
		if p.Tags == nil {
			return []string{}
		}
		return p.Tags
	case task.Summarization:
		return p.Text()
	}
	return p.Label
}

// Predictor serves one task's model.
type Predictor interface {
	Task() task.Type
	Predict(tokens []string) Prediction
}

type ClassificationPredictor struct{ Model *classifier.Model }

func (*ClassificationPredictor) Task() task.Type { return task.Classification }

func (c *ClassificationPredictor) Predict(tokens []string) Prediction {
	return Prediction{Task: task.Classification, Label: c.Model.Predict(tokens)}
}

type NERPredictor struct{ Model *ner.Model }

func (*NERPredictor) Task() task.Type { return task.NER }

func (n *NERPredictor) Predict(tokens []string) Prediction {
	return Prediction{Task: task.NER, Tags: n.Model.Predict(tokens)}
}

type SummarizationPredictor struct{ Model *summarization.Summarizer }

func (*SummarizationPredictor) Task() task.Type { return task.Summarization }

func (s *SummarizationPredictor) Predict(tokens []string) Prediction {
	return Prediction{Task: task.Summarization, Summary: s.Model.Summarize(tokens)}
}

// ErrTaskMismatch is returned by Open when the artifact was trained for a
// different task than requested.
var ErrTaskMismatch = errors.New("artifact task does not match")

// Open checks the artifact header at path against want, then decodes the full
// artifact into a Predictor.
func Open(path string, want task.Type) (Predictor, error) {
	h, err := artifact.ReadHeaderFile(path)
	if err != nil {
		return nil, err
	}
	if h.Task != want {
		return nil, fmt.Errorf("%w: requested %s, artifact is %s", ErrTaskMismatch, want, h.Task)
	}
	a, err := artifact.Load(path)
	if err != nil {
		return nil, err
	}
	return FromArtifact(a)
}

// FromArtifact unpacks the model parameters of a.
func FromArtifact(a *artifact.Artifact) (Predictor, error) {
	switch a.Task {
	case task.Classification:
		var m classifier.Model
		if err := a.Unpack(&m); err != nil {
			return nil, err
		}
		if len(m.Perceptron.Classes) == 0 {
			return nil, fmt.Errorf("%w: classifier has no labels", artifact.ErrCorrupt)
		}
		return &ClassificationPredictor{Model: &m}, nil
	case task.NER:
		var m ner.Model
		if err := a.Unpack(&m); err != nil {
			return nil, err
		}
		if len(m.Perceptron.Classes) == 0 {
			return nil, fmt.Errorf("%w: tagger has no tags", artifact.ErrCorrupt)
		}
		return &NERPredictor{Model: &m}, nil
	case task.Summarization:
		var m summarization.Summarizer
		if err := a.Unpack(&m); err != nil {
			return nil, err
		}
		return &SummarizationPredictor{Model: &m}, nil
	}
	return nil, fmt.Errorf("%w: %q", artifact.ErrUnknownTask, a.Task)
}
