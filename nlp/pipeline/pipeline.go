// Package pipeline runs preprocess, train and inference back to back through
// files in a work directory.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/oarkflow/arnlp/nlp/config"
	"github.com/oarkflow/arnlp/nlp/export"
	"github.com/oarkflow/arnlp/nlp/inference"
	"github.com/oarkflow/arnlp/nlp/ledger"
	"github.com/oarkflow/arnlp/nlp/metrics"
	"github.com/oarkflow/arnlp/nlp/preprocess"
	"github.com/oarkflow/arnlp/nlp/stage"
	"github.com/oarkflow/arnlp/nlp/task"
	"github.com/oarkflow/arnlp/nlp/trainer"
)

// Files are the paths one pipeline run reads and writes inside its work dir.
type Files struct {
	Raw    string
	Data   string
	Clean  string
	Meta   string
	Model  string
	Output string
}

// Layout names the files of a run in workDir.
func Layout(t task.Type, rawPath, dataPath, workDir string, format export.Format) Files {
	ext := ".txt"
	if format == export.FormatJSONL {
		ext = ".jsonl"
	}
	return Files{
		Raw:    rawPath,
		Data:   dataPath,
		Clean:  filepath.Join(workDir, "clean.txt"),
		Meta:   filepath.Join(workDir, "clean.meta.jsonl"),
		Model:  filepath.Join(workDir, string(t)+"_model.bin"),
		Output: filepath.Join(workDir, "results"+ext),
	}
}

type Result struct {
	Files      Files
	Preprocess preprocess.Stats
	Train      *trainer.Result
	Inference  *inference.Result
}

// Pipeline holds what the three stages share. Ledger may be nil.
type Pipeline struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	Ledger  *ledger.Ledger
}

// Run preprocesses rawPath, trains t from the labeled file dataPath and
// predicts every cleaned line. Each stage is tracked as its own run and the
// first failure stops the pipeline.
func (p *Pipeline) Run(ctx context.Context, t task.Type, rawPath, dataPath, workDir string) (*Result, error) {
	log := p.Logger
	if log == nil {
		log = zap.NewNop()
	}
	m := p.Metrics
	if m == nil {
		m = metrics.New()
	}
	format, err := export.ParseFormat(p.Config.Inference.OutputFormat)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, stage.Wrap(stage.Preprocess, stage.ErrIO, workDir, err)
	}
	files := Layout(t, rawPath, dataPath, workDir, format)
	res := &Result{Files: files}

	pre, err := preprocess.New(p.Config.Preprocess, log.With(zap.String("stage", string(stage.Preprocess))), m)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	err = p.Ledger.Track(stage.Preprocess, "", []string{files.Raw}, files.Clean, func() error {
		var runErr error
		res.Preprocess, runErr = pre.Run(ctx, files.Raw, files.Clean, files.Meta)
		return runErr
	})
	if err != nil {
		return res, err
	}

	tr := &trainer.Runner{Config: p.Config, Logger: log.With(zap.String("stage", string(stage.Train))), Metrics: m}
	err = p.Ledger.Track(stage.Train, string(t), []string{files.Data}, files.Model, func() error {
		var runErr error
		res.Train, runErr = tr.Run(ctx, t, files.Data, files.Model)
		return runErr
	})
	if err != nil {
		return res, err
	}

	inf := &inference.Runner{Config: p.Config, Logger: log.With(zap.String("stage", string(stage.Inference))), Metrics: m}
	err = p.Ledger.Track(stage.Inference, string(t), []string{files.Model, files.Clean}, files.Output, func() error {
		var runErr error
		res.Inference, runErr = inf.Run(ctx, t, files.Model, files.Clean, files.Output, "")
		return runErr
	})
	if err != nil {
		return res, err
	}

	log.Info("pipeline done",
		zap.String("task", string(t)),
		zap.String("work_dir", workDir),
		zap.Int("lines", res.Preprocess.Lines),
		zap.Int("predictions", res.Inference.Documents),
	)
	return res, nil
}
