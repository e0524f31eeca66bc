package ledger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/oarkflow/arnlp/nlp/stage"
)

func openTemp(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "state", "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestRunLifecycle(t *testing.T) {
	l := openTemp(t)
	model := "models/classification_model.bin"

	ok, err := l.Begin("train", "classification", "data/classification/train.jsonl", model)
	require.NoError(t, err)
	require.NoError(t, l.Succeed(ok, "00000000deadbeef"))

	bad, err := l.Begin("inference", "ner", "in.txt", "out.txt")
	require.NoError(t, err)
	require.NoError(t, l.Fail(bad, "TaskMismatchError"))

	runs, err := l.List(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	byID := map[string]Run{}
	for _, r := range runs {
		byID[r.ID] = r
	}
	assert.Equal(t, StatusSucceeded, byID[ok.ID].Status)
	assert.Equal(t, "00000000deadbeef", byID[ok.ID].OutputDigest)
	assert.True(t, filepath.IsAbs(byID[ok.ID].Output))
	assert.NotEmpty(t, byID[ok.ID].FinishedAt)
	assert.Equal(t, StatusFailed, byID[bad.ID].Status)
	assert.Equal(t, "TaskMismatchError", byID[bad.ID].ErrorKind)

	confirmed, err := l.Confirmed(model, "00000000deadbeef")
	require.NoError(t, err)
	assert.True(t, confirmed)

	confirmed, err = l.Confirmed(model, "ffffffffffffffff")
	require.NoError(t, err)
	assert.False(t, confirmed)

	confirmed, err = l.Confirmed("models/other.bin", "00000000deadbeef")
	require.NoError(t, err)
	assert.False(t, confirmed, "same content at another path is not confirmed")
}

func TestStartedRunIsNotConfirmed(t *testing.T) {
	l := openTemp(t)
	run, err := l.Begin("preprocess", "", "raw.txt", "clean.txt")
	require.NoError(t, err)

	runs, err := l.List(0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
	assert.Equal(t, StatusStarted, runs[0].Status)

	confirmed, err := l.Confirmed("clean.txt", "")
	require.NoError(t, err)
	assert.False(t, confirmed)
}

func TestListNewestFirst(t *testing.T) {
	l := openTemp(t)
	base := time.Date(2026, 10, 19, 12, 0, 5, 0, time.UTC)
	offsets := []time.Duration{0, 500 * time.Millisecond, 520 * time.Millisecond, 2 * time.Second}
	var ids []string
	for _, off := range offsets {
		at := base.Add(off)
		l.now = func() time.Time { return at }
		run, err := l.Begin("preprocess", "", "raw.txt", "clean.txt")
		require.NoError(t, err)
		ids = append(ids, run.ID)
	}

	runs, err := l.List(3)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, []string{ids[3], ids[2], ids[1]}, []string{runs[0].ID, runs[1].ID, runs[2].ID})
	assert.Equal(t, "2026-10-19T12:00:05.000000000Z", l.timestampAt(base))
}

func (l *Ledger) timestampAt(at time.Time) string {
	l.now = func() time.Time { return at }
	return l.timestamp()
}

func TestDisabledLedger(t *testing.T) {
	l, err := Open("")
	require.NoError(t, err)
	assert.Nil(t, l)

	run, err := l.Begin("preprocess", "", "a", "b")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	require.NoError(t, l.Succeed(run, "x"))
	runs, err := l.List(5)
	require.NoError(t, err)
	assert.Empty(t, runs)

	called := false
	require.NoError(t, l.Track(stage.Preprocess, "", nil, "missing.txt", func() error {
		called = true
		return nil
	}))
	assert.True(t, called)
	require.NoError(t, l.Close())
}

func TestReopenKeepsRuns(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "runs.db")
	out := filepath.Join(dir, "clean.txt")
	l, err := Open(path)
	require.NoError(t, err)
	run, err := l.Begin("preprocess", "", "raw.txt", out)
	require.NoError(t, err)
	require.NoError(t, l.Succeed(run, "0123456789abcdef"))
	require.NoError(t, l.Close())

	l, err = Open(path)
	require.NoError(t, err)
	defer l.Close()
	confirmed, err := l.Confirmed(out, "0123456789abcdef")
	require.NoError(t, err)
	assert.True(t, confirmed)
}

func TestTrack(t *testing.T) {
	l := openTemp(t)
	out := filepath.Join(t.TempDir(), "clean.txt")

	err := l.Track(stage.Preprocess, "", []string{"raw.txt"}, out, func() error {
		return os.WriteFile(out, []byte("hello world\n"), 0o644)
	})
	require.NoError(t, err)

	failure := stage.Errorf(stage.Inference, stage.ErrTaskMismatch, "want ner")
	err = l.Track(stage.Inference, "ner", []string{"m.bin", "in.txt"}, "out.txt", func() error { return failure })
	assert.Same(t, failure, err)

	err = l.Track(stage.Train, "classification", nil, "m.bin", func() error { return errors.New("boom") })
	assert.EqualError(t, err, "boom")

	runs, err := l.List(10)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	kinds := map[string]string{}
	for _, r := range runs {
		kinds[r.Stage] = r.Status + "/" + r.ErrorKind
	}
	assert.Equal(t, "succeeded/", kinds["preprocess"])
	assert.Equal(t, "failed/TaskMismatchError", kinds["inference"])
	assert.Equal(t, "failed/InternalError", kinds["train"])

	digest, err := FileDigest(out)
	require.NoError(t, err)
	confirmed, err := l.Confirmed(out, digest)
	require.NoError(t, err)
	assert.True(t, confirmed)
}

func TestTrackWithBrokenLedgerStillRuns(t *testing.T) {
	l, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	core, logs := observer.New(zapcore.WarnLevel)
	l.SetLogger(zap.New(core))
	require.NoError(t, l.db.Close())

	out := filepath.Join(t.TempDir(), "clean.txt")
	err = l.Track(stage.Preprocess, "", []string{"raw.txt"}, out, func() error {
		return os.WriteFile(out, []byte("ok\n"), 0o644)
	})
	require.NoError(t, err)
	assert.FileExists(t, out)
	assert.Equal(t, 1, logs.FilterMessage("run not recorded").Len())

	failure := stage.Errorf(stage.Train, stage.ErrSchema, "no examples")
	err = l.Track(stage.Train, "ner", nil, "m.bin", func() error { return failure })
	assert.Same(t, failure, err)
}

func TestFileDigest(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(a, []byte("hello world\n"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("hello world\n"), 0o644))

	da, err := FileDigest(a)
	require.NoError(t, err)
	db, err := FileDigest(b)
	require.NoError(t, err)
	assert.Equal(t, da, db)
	assert.Len(t, da, 16)

	_, err = FileDigest(filepath.Join(dir, "missing"))
	require.Error(t, err)
}
