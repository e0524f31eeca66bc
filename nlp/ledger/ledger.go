// Package ledger records every stage run in a small SQLite database so a
// caller can tell a confirmed-successful output from a leftover of a killed
// or failed run.
package ledger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/oarkflow/squealx"
	"github.com/oarkflow/xid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/oarkflow/arnlp/nlp/stage"
)

// timeLayout is fixed width so that timestamps sort as strings.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const (
	StatusStarted   = "started"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id            TEXT PRIMARY KEY,
		stage         TEXT NOT NULL,
		task          TEXT NOT NULL DEFAULT '',
		inputs        TEXT NOT NULL DEFAULT '',
		output        TEXT NOT NULL DEFAULT '',
		output_digest TEXT NOT NULL DEFAULT '',
		status        TEXT NOT NULL,
		error_kind    TEXT NOT NULL DEFAULT '',
		started_at    TEXT NOT NULL,
		finished_at   TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS runs_output_digest ON runs (output, output_digest, status)`,
}

// Run is one row of the runs table.
type Run struct {
	ID           string `db:"id"`
	Stage        string `db:"stage"`
	Task         string `db:"task"`
	Inputs       string `db:"inputs"`
	Output       string `db:"output"`
	OutputDigest string `db:"output_digest"`
	Status       string `db:"status"`
	ErrorKind    string `db:"error_kind"`
	StartedAt    string `db:"started_at"`
	FinishedAt   string `db:"finished_at"`
}

// Ledger wraps the runs database. A nil *Ledger is a disabled ledger: every
// method is a no-op.
type Ledger struct {
	db  *squealx.DB
	log *zap.Logger
	now func() time.Time
}

// Open creates or opens the ledger at path. An empty path returns a nil
// (disabled) ledger.
func Open(path string) (*Ledger, error) {
	if path == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ledger: creating dir: %w", err)
	}
	db, err := squealx.Open("sqlite", path, "ledger")
	if err != nil {
		return nil, fmt.Errorf("ledger: open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: ping %s: %w", path, err)
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("ledger: migrate: %w", err)
		}
	}
	return &Ledger{db: db, log: zap.NewNop(), now: time.Now}, nil
}

// SetLogger sets where Track reports ledger failures.
func (l *Ledger) SetLogger(log *zap.Logger) {
	if l != nil && log != nil {
		l.log = log
	}
}

func (l *Ledger) Close() error {
	if l == nil {
		return nil
	}
	return l.db.Close()
}

// Begin inserts a run in the started state and returns it. output is stored
// as an absolute path.
func (l *Ledger) Begin(stage, task, inputs, output string) (Run, error) {
	run := Run{
		ID:        xid.New().String(),
		Stage:     stage,
		Task:      task,
		Inputs:    inputs,
		Output:    absPath(output),
		Status:    StatusStarted,
		StartedAt: l.timestamp(),
	}
	if l == nil {
		return run, nil
	}
	_, err := l.db.NamedExec(`INSERT INTO runs (id, stage, task, inputs, output, status, started_at)
		VALUES (:id, :stage, :task, :inputs, :output, :status, :started_at)`, map[string]any{
		"id":         run.ID,
		"stage":      run.Stage,
		"task":       run.Task,
		"inputs":     run.Inputs,
		"output":     run.Output,
		"status":     run.Status,
		"started_at": run.StartedAt,
	})
	if err != nil {
		return run, fmt.Errorf("ledger: begin run: %w", err)
	}
	return run, nil
}

// Succeed marks run as succeeded with the digest of its output file.
func (l *Ledger) Succeed(run Run, digest string) error {
	return l.finish(run, StatusSucceeded, digest, "")
}

// Fail marks run as failed with the given failure kind.
func (l *Ledger) Fail(run Run, kind string) error {
	return l.finish(run, StatusFailed, "", kind)
}

func (l *Ledger) finish(run Run, status, digest, kind string) error {
	if l == nil {
		return nil
	}
	_, err := l.db.NamedExec(`UPDATE runs SET status = :status, output_digest = :digest,
		error_kind = :kind, finished_at = :finished_at WHERE id = :id`, map[string]any{
		"id":          run.ID,
		"status":      status,
		"digest":      digest,
		"kind":        kind,
		"finished_at": l.timestamp(),
	})
	if err != nil {
		return fmt.Errorf("ledger: finish run %s: %w", run.ID, err)
	}
	return nil
}

// Track records fn as one run of s. The run is marked succeeded with the
// digest of output when fn returns nil, and failed with the error kind
// otherwise. fn's error is returned unchanged. When the ledger cannot be
// written the problem is logged and fn still runs.
func (l *Ledger) Track(s stage.Stage, task string, inputs []string, output string, fn func() error) error {
	if l == nil {
		return fn()
	}
	run, err := l.Begin(string(s), task, strings.Join(inputs, ","), output)
	if err != nil {
		l.log.Warn("run not recorded", zap.String("stage", string(s)), zap.Error(err))
		return fn()
	}
	if err := fn(); err != nil {
		if ferr := l.Fail(run, stage.KindName(err)); ferr != nil {
			l.log.Warn("run failure not recorded", zap.String("run_id", run.ID), zap.Error(ferr))
		}
		return err
	}
	digest, err := FileDigest(output)
	if err != nil {
		if ferr := l.Fail(run, stage.ErrIO.Error()); ferr != nil {
			l.log.Warn("run failure not recorded", zap.String("run_id", run.ID), zap.Error(ferr))
		}
		return stage.Wrap(s, stage.ErrIO, output, err)
	}
	if err := l.Succeed(run, digest); err != nil {
		l.log.Warn("run success not recorded", zap.String("run_id", run.ID), zap.Error(err))
	}
	return nil
}

// List returns the most recent runs, newest first.
func (l *Ledger) List(limit int) ([]Run, error) {
	if l == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}
	var runs []Run
	err := l.db.Select(&runs, `SELECT id, stage, task, inputs, output, output_digest, status,
		error_kind, started_at, finished_at FROM runs ORDER BY started_at DESC, id DESC LIMIT :limit`,
		map[string]any{"limit": limit})
	if err != nil {
		return nil, fmt.Errorf("ledger: list runs: %w", err)
	}
	return runs, nil
}

// Confirmed reports whether a succeeded run wrote path with content digest.
func (l *Ledger) Confirmed(path, digest string) (bool, error) {
	if l == nil || digest == "" {
		return false, nil
	}
	var runs []Run
	err := l.db.Select(&runs, `SELECT id, stage, task, inputs, output, output_digest, status,
		error_kind, started_at, finished_at FROM runs
		WHERE output = :output AND output_digest = :digest AND status = :status LIMIT 1`,
		map[string]any{"output": absPath(path), "digest": digest, "status": StatusSucceeded})
	if err != nil {
		return false, fmt.Errorf("ledger: lookup digest: %w", err)
	}
	return len(runs) > 0, nil
}

func (l *Ledger) timestamp() string {
	now := time.Now
	if l != nil && l.now != nil {
		now = l.now
	}
	return now().UTC().Format(timeLayout)
}

func absPath(path string) string {
	if path == "" {
		return ""
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// FileDigest returns the xxhash64 of a file's content as 16 hex digits.
func FileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}
