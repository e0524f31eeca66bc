// Package stage defines the pipeline stages and the failure taxonomy shared
// by all of them.
package stage

import (
	"errors"
	"fmt"
)

// Stage names one batch step of the pipeline.
type Stage string

const (
	Preprocess Stage = "preprocess"
	Train      Stage = "train"
	Inference  Stage = "inference"
)

// Failure kinds. A stage aborts on any of them.
var (
	ErrIO            = errors.New("IOError")
	ErrEncoding      = errors.New("EncodingError")
	ErrSchema        = errors.New("SchemaError")
	ErrInputSchema   = errors.New("InputSchemaError")
	ErrTaskMismatch  = errors.New("TaskMismatchError")
	ErrArtifactLoad  = errors.New("ArtifactLoadError")
	errUnknownFailed = errors.New("InternalError")
)

// Error is a stage failure. Kind is one of the sentinel kinds above; Err is the
// underlying cause, if any.
type Error struct {
	Stage Stage
	Kind  error
	Path  string
	Line  int // 1-based, 0 when not tied to a line
	Msg   string
	Err   error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("%s: %s", e.Stage, e.Kind)
	if e.Path != "" {
		msg += ": " + e.Path
		if e.Line > 0 {
			msg += fmt.Sprintf(":%d", e.Line)
		}
	}
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Errorf builds a stage error without a path.
func Errorf(s Stage, kind error, format string, args ...any) *Error {
	return &Error{Stage: s, Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a stage, kind and path to err.
func Wrap(s Stage, kind error, path string, err error) *Error {
	return &Error{Stage: s, Kind: kind, Path: path, Err: err}
}

// AtLine returns a copy of e pinned to a 1-based line number.
func (e *Error) AtLine(line int) *Error {
	c := *e
	c.Line = line
	return &c
}

// KindOf returns the failure kind carried by err, or nil if err is not a
// stage error.
func KindOf(err error) error {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return nil
}

// KindName is KindOf rendered for logs and the run ledger.
func KindName(err error) string {
	if err == nil {
		return ""
	}
	if k := KindOf(err); k != nil {
		return k.Error()
	}
	return errUnknownFailed.Error()
}

// ConvergenceWarning reports that training did not beat its baseline within
// the iteration budget. It is logged and counted, never returned as a failure.
type ConvergenceWarning struct {
	Task       string
	Iterations int
	Score      float64
	Baseline   float64
}

func (w ConvergenceWarning) String() string {
	return fmt.Sprintf("ConvergenceWarning: %s training score %.4f did not beat baseline %.4f after %d iterations",
		w.Task, w.Score, w.Baseline, w.Iterations)
}
