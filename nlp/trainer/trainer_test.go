package trainer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/oarkflow/arnlp/nlp/artifact"
	"github.com/oarkflow/arnlp/nlp/config"
	"github.com/oarkflow/arnlp/nlp/metrics"
	"github.com/oarkflow/arnlp/nlp/stage"
	"github.com/oarkflow/arnlp/nlp/task"
)

var rows = map[task.Type]string{
	task.Classification: `{"text": "hello world", "label": "greeting"}
{"text": "فرحان جدا", "label": "happy"}
`,
	task.NER: `{"tokens": ["زار", "محمد", "القاهرة"], "tags": ["O", "B-PER", "B-LOC"]}
{"tokens": ["سافر", "احمد", "الى", "دبي"], "tags": ["O", "B-PER", "O", "B-LOC"]}
`,
	task.Summarization: `{"text": "الجو جميل . فاز الفريق ب+ الكاس .", "summary": "فاز الفريق ب+ الكاس ."}
{"text": "the day began . the team won the cup .", "summary": "the team won the cup ."}
`,
}

func setup(t *testing.T) (*config.Config, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(dir, "data")
	cfg.Paths.ModelDir = filepath.Join(dir, "models")
	return cfg, dir
}

func writeData(t *testing.T, cfg *config.Config, tk task.Type, content string) {
	t.Helper()
	path := DataPath(cfg.Paths, tk)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestNewSelectsVariant(t *testing.T) {
	for _, tk := range task.All {
		tr, err := New(tk, config.Default().Train)
		require.NoError(t, err)
		assert.Equal(t, tk, tr.Task())
	}
	_, err := New("translation", config.Default().Train)
	assert.Error(t, err)
}

func TestRunTagsArtifactWithTask(t *testing.T) {
	for _, tk := range task.All {
		t.Run(string(tk), func(t *testing.T) {
			cfg, _ := setup(t)
			writeData(t, cfg, tk, rows[tk])

			r := &Runner{Config: cfg, Logger: zap.NewNop(), Metrics: metrics.New()}
			res, err := r.Run(context.Background(), tk, "", "")
			require.NoError(t, err)
			assert.Equal(t, ModelPath(cfg.Paths, tk), res.ModelPath)
			assert.Equal(t, tk, res.Artifact.Task)

			h, err := artifact.ReadHeaderFile(res.ModelPath)
			require.NoError(t, err)
			assert.Equal(t, tk, h.Task)
			assert.Equal(t, float64(2), testutil.ToFloat64(r.Metrics.Documents.WithLabelValues("train")))
		})
	}
}

func TestRunConvergenceWarningIsNotFatal(t *testing.T) {
	cfg, _ := setup(t)
	writeData(t, cfg, task.Classification, `{"text": "a", "label": "same"}
{"text": "b", "label": "same"}
`)
	core, logs := observer.New(zapcore.InfoLevel)
	r := &Runner{Config: cfg, Logger: zap.New(core), Metrics: metrics.New()}

	res, err := r.Run(context.Background(), task.Classification, "", "")
	require.NoError(t, err)
	require.NotNil(t, res.Warning)
	assert.Equal(t, "classification", res.Warning.Task)

	warnings := logs.FilterLevelExact(zapcore.WarnLevel).All()
	require.Len(t, warnings, 1)
	assert.True(t, strings.HasPrefix(warnings[0].Message, "ConvergenceWarning"))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.Metrics.ConvergenceWarnings.WithLabelValues("classification")))

	_, err = os.Stat(res.ModelPath)
	assert.NoError(t, err, "artifact is still written")
}

func TestRunExplicitPaths(t *testing.T) {
	cfg, dir := setup(t)
	data := filepath.Join(dir, "custom.jsonl")
	require.NoError(t, os.WriteFile(data, []byte(rows[task.Classification]), 0o644))
	model := filepath.Join(dir, "out", "m.bin")

	res, err := (&Runner{Config: cfg}).Run(context.Background(), task.Classification, data, model)
	require.NoError(t, err)
	assert.Equal(t, model, res.ModelPath)
	assert.FileExists(t, model)
}

func TestRunFailures(t *testing.T) {
	cfg, dir := setup(t)
	r := &Runner{Config: cfg}

	_, err := r.Run(context.Background(), task.Classification, "", "")
	assert.ErrorIs(t, err, stage.ErrIO)

	empty := filepath.Join(dir, "empty.jsonl")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	_, err = r.Run(context.Background(), task.Classification, empty, "")
	assert.ErrorIs(t, err, stage.ErrSchema)

	mismatch := filepath.Join(dir, "ner.jsonl")
	require.NoError(t, os.WriteFile(mismatch, []byte(`{"tokens": ["a", "b"], "tags": ["O"]}`+"\n"), 0o644))
	_, err = r.Run(context.Background(), task.NER, mismatch, "")
	assert.ErrorIs(t, err, stage.ErrSchema)
	assert.NoFileExists(t, ModelPath(cfg.Paths, task.NER))
}
