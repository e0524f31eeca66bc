package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oarkflow/arnlp/nlp/cli"
	"github.com/oarkflow/arnlp/nlp/ledger"
)

func TestRunWithDefaultConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	require.NoError(t, os.WriteFile("raw.txt", []byte("Hello World\nفرحان جدا\n"), 0o644))
	require.NoError(t, os.WriteFile("train.jsonl", []byte(`{"text": "hello world", "label": "en"}
{"text": "فرحان جدا", "label": "ar"}
`), 0o644))

	err := run(context.Background(), []string{
		"--task", "classification", "--raw_path", "raw.txt",
		"--data_path", "train.jsonl", "--work_dir", "work",
	})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join("work", "results.txt"))
	require.NoError(t, err)
	assert.Equal(t, "en\nar\n", string(data))

	l, err := ledger.Open(filepath.Join(".arnlp", "runs.db"))
	require.NoError(t, err)
	defer l.Close()
	runs, err := l.List(10)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	var stages []string
	for _, r := range runs {
		assert.Equal(t, ledger.StatusSucceeded, r.Status)
		stages = append(stages, r.Stage)
	}
	assert.ElementsMatch(t, []string{"preprocess", "train", "inference"}, stages)
}

func TestRunMissingData(t *testing.T) {
	t.Chdir(t.TempDir())
	require.NoError(t, os.WriteFile("raw.txt", []byte("hello\n"), 0o644))
	err := run(context.Background(), []string{
		"--task", "ner", "--raw_path", "raw.txt",
		"--data_path", "missing.jsonl", "--work_dir", "work",
	})
	assert.Equal(t, cli.ExitIO, cli.ExitCode(err))
	assert.FileExists(t, filepath.Join("work", "clean.txt"))
	assert.NoFileExists(t, filepath.Join("work", "results.txt"))
}
