package cli

import (
	"errors"
	"flag"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oarkflow/arnlp/nlp/stage"
	"github.com/oarkflow/arnlp/nlp/task"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"help", flag.ErrHelp, ExitSuccess},
		{"usage", Usagef("--task is required"), ExitUsage},
		{"io", stage.Wrap(stage.Preprocess, stage.ErrIO, "raw.txt", os.ErrNotExist), ExitIO},
		{"encoding", stage.Errorf(stage.Preprocess, stage.ErrEncoding, "bad byte"), ExitEncoding},
		{"schema", stage.Errorf(stage.Train, stage.ErrSchema, "no examples"), ExitSchema},
		{"mismatch", stage.Errorf(stage.Inference, stage.ErrTaskMismatch, "ner"), ExitTaskMismatch},
		{"artifact", stage.Errorf(stage.Inference, stage.ErrArtifactLoad, "magic"), ExitArtifactLoad},
		{"input", stage.Errorf(stage.Inference, stage.ErrInputSchema, "tab"), ExitInputSchema},
		{"other", errors.New("boom"), ExitInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestMessage(t *testing.T) {
	err := (&stage.Error{Stage: stage.Inference, Kind: stage.ErrInputSchema, Path: "clean.txt", Msg: "tab"}).AtLine(3)
	assert.Equal(t, "inference: InputSchemaError: clean.txt:3: tab", Message("inference", err))
	assert.Equal(t, "train: UsageError: --task is required", Message("train", Usagef("--task is required")))
	assert.Equal(t, "runs: InternalError: boom", Message("runs", errors.New("boom")))
}

func TestParse(t *testing.T) {
	fs := FlagSet("train", io.Discard)
	taskName := fs.String("task", "", "")
	require.NoError(t, Parse(fs, []string{"--task", "ner"}))
	assert.Equal(t, "ner", *taskName)

	fs = FlagSet("train", io.Discard)
	fs.String("task", "", "")
	assert.Equal(t, ExitUsage, ExitCode(Parse(fs, []string{"--bogus"})))

	fs = FlagSet("train", io.Discard)
	fs.String("task", "", "")
	assert.Equal(t, ExitUsage, ExitCode(Parse(fs, []string{"extra"})))

	fs = FlagSet("train", io.Discard)
	assert.ErrorIs(t, Parse(fs, []string{"-h"}), flag.ErrHelp)
}

func TestRequireAndParseTask(t *testing.T) {
	fs := FlagSet("inference", io.Discard)
	fs.String("model_path", "", "")
	fs.String("input_path", "in.txt", "")
	err := Require(fs, "input_path", "model_path")
	assert.EqualError(t, err, "--model_path is required")

	tk, err := ParseTask("ner")
	require.NoError(t, err)
	assert.Equal(t, task.NER, tk)

	_, err = ParseTask("")
	assert.Equal(t, ExitUsage, ExitCode(err))
	_, err = ParseTask("translation")
	assert.Equal(t, ExitUsage, ExitCode(err))
}

func TestSetup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "arnlp.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
ledger:
  path: `+filepath.Join(dir, "runs.db")+`
metrics:
  textfile_path: `+filepath.Join(dir, "arnlp.prom")+`
`), 0o644))

	env, err := Setup("train", path)
	require.NoError(t, err)
	assert.Equal(t, path, env.ConfigPath)
	require.NotNil(t, env.Ledger)

	env.Finish(stage.Errorf(stage.Train, stage.ErrSchema, "no examples"))
	data, err := os.ReadFile(filepath.Join(dir, "arnlp.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `arnlp_stage_failures_total{kind="SchemaError",stage="train"} 1`)
}

func TestSetupRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arnlp.yaml")
	require.NoError(t, os.WriteFile(path, []byte("inference:\n  output_format: xml\n"), 0o644))
	_, err := Setup("inference", path)
	assert.Equal(t, ExitUsage, ExitCode(err))

	_, err = Setup("inference", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, ExitUsage, ExitCode(err))
}

func TestSetupContinuesWithoutLedger(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	path := filepath.Join(dir, "arnlp.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ledger:\n  path: "+filepath.Join(blocker, "runs.db")+"\n"), 0o644))

	env, err := Setup("preprocess", path)
	require.NoError(t, err)
	assert.Nil(t, env.Ledger)
	require.Error(t, env.LedgerErr)

	called := false
	require.NoError(t, env.Ledger.Track(stage.Preprocess, "", nil, "", func() error {
		called = true
		return nil
	}))
	assert.True(t, called)
	env.Finish(nil)
}
