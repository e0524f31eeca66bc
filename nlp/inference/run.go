package inference

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/oarkflow/arnlp/nlp/config"
	"github.com/oarkflow/arnlp/nlp/dataset"
	"github.com/oarkflow/arnlp/nlp/evaluate"
	"github.com/oarkflow/arnlp/nlp/export"
	"github.com/oarkflow/arnlp/nlp/metrics"
	"github.com/oarkflow/arnlp/nlp/stage"
	"github.com/oarkflow/arnlp/nlp/streaming"
	"github.com/oarkflow/arnlp/nlp/task"
)

type Result struct {
	Documents int
	// Metric and Score are set when references were given.
	Metric string
	Score  float64
}

type Runner struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// Predict runs p over every cleaned line of r and writes one result per line
// to w. It returns the predictions in input order.
func Predict(ctx context.Context, p Predictor, r io.Reader, w io.Writer, format export.Format, maxLineBytes int) ([]Prediction, error) {
	out := export.NewWriter(w, format)
	var preds []Prediction
	err := streaming.ProcessLines(r, maxLineBytes, func(n int, line string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := dataset.CheckCleaned(line); err != nil {
			return (&stage.Error{Stage: stage.Inference, Kind: stage.ErrInputSchema, Err: err}).AtLine(n + 1)
		}
		pred := p.Predict(strings.Fields(line))
		preds = append(preds, pred)
		rec := export.Record{ID: n, Task: string(p.Task()), Prediction: pred.Value()}
		return out.Write(rec, pred.Text())
	})
	if err != nil {
		var lineErr *streaming.LineError
		if errors.As(err, &lineErr) {
			kind := stage.ErrIO
			if errors.Is(err, streaming.ErrInvalidUTF8) {
				kind = stage.ErrInputSchema
			}
			return preds, (&stage.Error{Stage: stage.Inference, Kind: kind, Err: lineErr.Err}).AtLine(lineErr.Line)
		}
		return preds, err
	}
	if err := out.Flush(); err != nil {
		return preds, stage.Wrap(stage.Inference, stage.ErrIO, "", err)
	}
	return preds, nil
}

// Run loads the artifact at modelPath for t, predicts every line of
// inputPath and writes the results to outputPath. The artifact is checked
// before any output is created. When referencePath is set the predictions
// are scored against it.
func (r *Runner) Run(ctx context.Context, t task.Type, modelPath, inputPath, outputPath, referencePath string) (*Result, error) {
	start := time.Now()
	log := r.Logger
	if log == nil {
		log = zap.NewNop()
	}
	m := r.Metrics
	if m == nil {
		m = metrics.New()
	}
	log = log.With(zap.String("task", string(t)))

	format, err := export.ParseFormat(r.Config.Inference.OutputFormat)
	if err != nil {
		return nil, fmt.Errorf("inference: %w", err)
	}
	p, err := Open(modelPath, t)
	if err != nil {
		if errors.Is(err, ErrTaskMismatch) {
			return nil, stage.Wrap(stage.Inference, stage.ErrTaskMismatch, modelPath, err)
		}
		return nil, stage.Wrap(stage.Inference, stage.ErrArtifactLoad, modelPath, err)
	}

	var refs []dataset.Example
	if referencePath != "" {
		if refs, err = dataset.Load(referencePath, t, stage.Inference, r.Config.Preprocess.MaxLineBytes); err != nil {
			return nil, err
		}
	}

	in, err := os.Open(inputPath)
	if err != nil {
		return nil, stage.Wrap(stage.Inference, stage.ErrIO, inputPath, err)
	}
	defer in.Close()
	out, err := streaming.CreateAtomic(outputPath)
	if err != nil {
		return nil, stage.Wrap(stage.Inference, stage.ErrIO, outputPath, err)
	}
	defer out.Abort()

	preds, err := Predict(ctx, p, in, out, format, r.Config.Preprocess.MaxLineBytes)
	if err != nil {
		var se *stage.Error
		if errors.As(err, &se) && se.Path == "" {
			se.Path = inputPath
		}
		return nil, err
	}
	res := &Result{Documents: len(preds)}
	if refs != nil {
		if len(refs) != len(preds) {
			return nil, &stage.Error{Stage: stage.Inference, Kind: stage.ErrSchema, Path: referencePath,
				Msg: fmt.Sprintf("%d references for %d documents", len(refs), len(preds))}
		}
		res.Metric, res.Score = Score(t, preds, refs)
	}
	if err := out.Commit(); err != nil {
		return nil, stage.Wrap(stage.Inference, stage.ErrIO, outputPath, err)
	}

	elapsed := time.Since(start)
	m.Documents.WithLabelValues(string(stage.Inference)).Add(float64(len(preds)))
	m.StageDuration.WithLabelValues(string(stage.Inference)).Set(elapsed.Seconds())
	fields := []zap.Field{
		zap.String("model", modelPath),
		zap.String("output", outputPath),
		zap.String("format", string(format)),
		zap.Int("documents", len(preds)),
		zap.Duration("elapsed", elapsed),
	}
	if res.Metric != "" {
		fields = append(fields, zap.String("metric", res.Metric), zap.Float64("score", res.Score))
	}
	log.Info("inference done", fields...)
	return res, nil
}

// Score compares predictions with aligned references.
func Score(t task.Type, preds []Prediction, refs []dataset.Example) (string, float64) {
	switch t {
	case task.NER:
		pred := make([][]string, len(preds))
		gold := make([][]string, len(refs))
		for i := range preds {
			pred[i], gold[i] = preds[i].Tags, refs[i].Tags
		}
		return "token_accuracy", evaluate.TokenAccuracy(pred, gold)
	case task.Summarization:
		if len(preds) == 0 {
			return "rouge1_f1", 0
		}
		total := 0.0
		for i := range preds {
			total += evaluate.Rouge1(preds[i].Summary, strings.Fields(refs[i].Summary))
		}
		return "rouge1_f1", total / float64(len(preds))
	}
	pred := make([]string, len(preds))
	gold := make([]string, len(refs))
	for i := range preds {
		pred[i], gold[i] = preds[i].Label, refs[i].Label
	}
	return "accuracy", evaluate.Accuracy(pred, gold)
}
