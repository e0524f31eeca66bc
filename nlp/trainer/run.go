package trainer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/oarkflow/arnlp/nlp/artifact"
	"github.com/oarkflow/arnlp/nlp/config"
	"github.com/oarkflow/arnlp/nlp/dataset"
	"github.com/oarkflow/arnlp/nlp/metrics"
	"github.com/oarkflow/arnlp/nlp/stage"
	"github.com/oarkflow/arnlp/nlp/task"
)

// DataPath is the conventional training file for t.
func DataPath(cfg config.PathsConfig, t task.Type) string {
	return filepath.Join(cfg.DataDir, string(t), "train.jsonl")
}

// ModelPath is the conventional artifact location for t.
func ModelPath(cfg config.PathsConfig, t task.Type) string {
	return filepath.Join(cfg.ModelDir, string(t)+"_model.bin")
}

type Result struct {
	DataPath  string
	ModelPath string
	Artifact  *artifact.Artifact
	Report    Report
	// Warning is set when the model did not beat its baseline. The artifact
	// is written regardless.
	Warning *stage.ConvergenceWarning
}

type Runner struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// Run trains t from dataPath and writes the artifact to modelPath. Empty
// paths fall back to the conventional locations.
func (r *Runner) Run(ctx context.Context, t task.Type, dataPath, modelPath string) (*Result, error) {
	start := time.Now()
	log := r.Logger
	if log == nil {
		log = zap.NewNop()
	}
	m := r.Metrics
	if m == nil {
		m = metrics.New()
	}
	if dataPath == "" {
		dataPath = DataPath(r.Config.Paths, t)
	}
	if modelPath == "" {
		modelPath = ModelPath(r.Config.Paths, t)
	}
	log = log.With(zap.String("task", string(t)))

	tr, err := New(t, r.Config.Train)
	if err != nil {
		return nil, stage.Errorf(stage.Train, stage.ErrSchema, "%v", err)
	}
	examples, err := dataset.Load(dataPath, t, stage.Train, r.Config.Preprocess.MaxLineBytes)
	if err != nil {
		return nil, err
	}
	log.Info("training", zap.String("data", dataPath), zap.Int("examples", len(examples)))
	m.Documents.WithLabelValues(string(stage.Train)).Add(float64(len(examples)))

	a, rep, err := tr.Train(ctx, examples)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, stage.Wrap(stage.Train, stage.ErrSchema, dataPath, err)
	}
	if a.Task != tr.Task() {
		return nil, stage.Errorf(stage.Train, stage.ErrTaskMismatch, "trainer for %s produced a %s artifact", tr.Task(), a.Task)
	}
	if err := artifact.Write(modelPath, a); err != nil {
		return nil, stage.Wrap(stage.Train, stage.ErrIO, modelPath, err)
	}

	res := &Result{DataPath: dataPath, ModelPath: modelPath, Artifact: a, Report: rep}
	m.TrainingScore.WithLabelValues(string(t)).Set(rep.Score)
	m.BaselineScore.WithLabelValues(string(t)).Set(rep.Baseline)
	if !rep.Beats() {
		res.Warning = &stage.ConvergenceWarning{
			Task:       string(t),
			Iterations: rep.Epochs,
			Score:      rep.Score,
			Baseline:   rep.Baseline,
		}
		m.ConvergenceWarnings.WithLabelValues(string(t)).Inc()
		log.Warn(res.Warning.String(),
			zap.String("metric", rep.Metric),
			zap.Float64("score", rep.Score),
			zap.Float64("baseline", rep.Baseline),
			zap.Int("epochs", rep.Epochs),
		)
	}

	elapsed := time.Since(start)
	m.StageDuration.WithLabelValues(string(stage.Train)).Set(elapsed.Seconds())
	fields := []zap.Field{
		zap.String("model", modelPath),
		zap.String("artifact_id", a.ID),
		zap.String("metric", rep.Metric),
		zap.Float64("score", rep.Score),
		zap.Float64("baseline", rep.Baseline),
		zap.Int("epochs", rep.Epochs),
		zap.Duration("elapsed", elapsed),
	}
	if fi, err := os.Stat(modelPath); err == nil {
		fields = append(fields, zap.String("size", humanize.Bytes(uint64(fi.Size()))))
	}
	log.Info("trained", fields...)
	return res, nil
}
