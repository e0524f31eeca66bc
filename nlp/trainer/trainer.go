// Package trainer fits task models from labeled JSON Lines files and writes
// them as artifacts.
package trainer

import (
	"context"
	"fmt"
	"strings"

	"github.com/oarkflow/arnlp/nlp/artifact"
	"github.com/oarkflow/arnlp/nlp/classifier"
	"github.com/oarkflow/arnlp/nlp/config"
	"github.com/oarkflow/arnlp/nlp/dataset"
	"github.com/oarkflow/arnlp/nlp/evaluate"
	"github.com/oarkflow/arnlp/nlp/ner"
	"github.com/oarkflow/arnlp/nlp/summarization"
	"github.com/oarkflow/arnlp/nlp/task"
)

type Report = evaluate.Report

// Trainer fits one task's model.
type Trainer interface {
	Task() task.Type
	Train(ctx context.Context, examples []dataset.Example) (*artifact.Artifact, Report, error)
}

// New returns the Trainer for t configured from cfg.
func New(t task.Type, cfg config.TrainConfig) (Trainer, error) {
	switch t {
	case task.Classification:
		return &ClassificationTrainer{Options: classifier.Options{
			NgramMax:      cfg.Classification.NgramMax,
			Stem:          cfg.Classification.Stem,
			DropStopwords: cfg.Classification.DropStopwords,
			MaxIterations: cfg.MaxIterations,
			Seed:          cfg.Seed,
		}}, nil
	case task.NER:
		return &NERTrainer{Options: ner.Options{
			AffixLength:   cfg.NER.AffixLength,
			MaxIterations: cfg.MaxIterations,
			Seed:          cfg.Seed,
		}}, nil
	case task.Summarization:
		return &SummarizationTrainer{Options: summarization.Options{
			OverlapThreshold: cfg.Summarization.OverlapThreshold,
			MaxSentences:     cfg.Summarization.MaxSentences,
			MaxIterations:    cfg.MaxIterations,
			Seed:             cfg.Seed,
		}}, nil
	}
	return nil, fmt.Errorf("no trainer for task %q", t)
}

type ClassificationTrainer struct {
	Options classifier.Options
}

func (*ClassificationTrainer) Task() task.Type { return task.Classification }

func (c *ClassificationTrainer) Train(ctx context.Context, examples []dataset.Example) (*artifact.Artifact, Report, error) {
	data := make([]classifier.Example, len(examples))
	for i, ex := range examples {
		data[i] = classifier.Example{Tokens: ex.Words(), Label: ex.Label}
	}
	m, rep, err := classifier.Train(ctx, data, c.Options)
	if err != nil {
		return nil, rep, err
	}
	a, err := artifact.New(task.Classification, m, rep.Metrics())
	return a, rep, err
}

type NERTrainer struct {
	Options ner.Options
}

func (*NERTrainer) Task() task.Type { return task.NER }

func (n *NERTrainer) Train(ctx context.Context, examples []dataset.Example) (*artifact.Artifact, Report, error) {
	data := make([]ner.Example, len(examples))
	for i, ex := range examples {
		data[i] = ner.Example{Tokens: ex.Words(), Tags: ex.Tags}
	}
	m, rep, err := ner.Train(ctx, data, n.Options)
	if err != nil {
		return nil, rep, err
	}
	a, err := artifact.New(task.NER, m, rep.Metrics())
	return a, rep, err
}

type SummarizationTrainer struct {
	Options summarization.Options
}

func (*SummarizationTrainer) Task() task.Type { return task.Summarization }

func (s *SummarizationTrainer) Train(ctx context.Context, examples []dataset.Example) (*artifact.Artifact, Report, error) {
	data := make([]summarization.Example, len(examples))
	for i, ex := range examples {
		data[i] = summarization.Example{Tokens: ex.Words(), Summary: strings.Fields(ex.Summary)}
	}
	m, rep, err := summarization.Train(ctx, data, s.Options)
	if err != nil {
		return nil, rep, err
	}
	a, err := artifact.New(task.Summarization, m, rep.Metrics())
	return a, rep, err
}
