// Package cli holds what the pipeline commands share: flag parsing, config and
// logger setup, run tracking, and the mapping from failures to exit codes.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/oarkflow/arnlp/nlp/config"
	"github.com/oarkflow/arnlp/nlp/ledger"
	"github.com/oarkflow/arnlp/nlp/logging"
	"github.com/oarkflow/arnlp/nlp/metrics"
	"github.com/oarkflow/arnlp/nlp/stage"
	"github.com/oarkflow/arnlp/nlp/task"
)

const (
	ExitSuccess      = 0
	ExitInternal     = 1
	ExitUsage        = 2
	ExitIO           = 3
	ExitEncoding     = 4
	ExitSchema       = 5
	ExitTaskMismatch = 6
	ExitArtifactLoad = 7
	ExitInputSchema  = 8
)

var exitCodes = []struct {
	kind error
	code int
}{
	{stage.ErrIO, ExitIO},
	{stage.ErrEncoding, ExitEncoding},
	{stage.ErrSchema, ExitSchema},
	{stage.ErrTaskMismatch, ExitTaskMismatch},
	{stage.ErrArtifactLoad, ExitArtifactLoad},
	{stage.ErrInputSchema, ExitInputSchema},
}

// UsageError is a bad invocation: unknown flags, missing arguments or an
// invalid config.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func Usagef(format string, args ...any) error {
	return &UsageError{Message: fmt.Sprintf(format, args...)}
}

// ExitCode maps err to the process exit status.
func ExitCode(err error) int {
	if err == nil || errors.Is(err, flag.ErrHelp) {
		return ExitSuccess
	}
	var ue *UsageError
	if errors.As(err, &ue) {
		return ExitUsage
	}
	if kind := stage.KindOf(err); kind != nil {
		for _, e := range exitCodes {
			if kind == e.kind {
				return e.code
			}
		}
	}
	return ExitInternal
}

// Message renders err as "<stage>: <Kind>: <detail>" for stderr.
func Message(command string, err error) string {
	var se *stage.Error
	var ue *UsageError
	switch {
	case errors.As(err, &se):
		return se.Error()
	case errors.As(err, &ue):
		return fmt.Sprintf("%s: UsageError: %s", command, ue.Message)
	}
	return fmt.Sprintf("%s: %s: %v", command, stage.KindName(err), err)
}

// FlagSet returns a flag set that reports parse errors instead of exiting.
func FlagSet(name string, output io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(output)
	return fs
}

// Parse parses args into fs and turns parse failures into usage errors.
func Parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return Usagef("%v", err)
	}
	if fs.NArg() > 0 {
		return Usagef("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	return nil
}

// Require fails with a usage error naming the first empty flag.
func Require(fs *flag.FlagSet, names ...string) error {
	for _, name := range names {
		f := fs.Lookup(name)
		if f == nil || f.Value.String() == "" {
			return Usagef("--%s is required", name)
		}
	}
	return nil
}

// ParseTask validates a --task value.
func ParseTask(s string) (task.Type, error) {
	if s == "" {
		return "", Usagef("--task is required (one of %s)", task.Names())
	}
	t, err := task.Parse(s)
	if err != nil {
		return "", Usagef("%v", err)
	}
	return t, nil
}

// Env is the per-process state a command runs with.
type Env struct {
	Command    string
	Config     *config.Config
	ConfigPath string
	Logger     *zap.Logger
	Metrics    *metrics.Metrics
	// Ledger is nil when tracking is disabled or the ledger could not be
	// opened; LedgerErr holds the open failure.
	Ledger    *ledger.Ledger
	LedgerErr error
}

// Setup resolves and validates the config, then builds the logger, metrics
// and run ledger. A ledger that cannot be opened is logged and left nil so the
// stage still runs untracked.
func Setup(command, configPath string) (*Env, error) {
	cfg, path, err := config.Resolve(configPath)
	if err != nil {
		return nil, Usagef("%v", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, Usagef("config: %v", err)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, Usagef("%v", err)
	}
	logger = logger.With(zap.String("command", command))
	if path != "" {
		logger.Debug("config loaded", zap.String("path", path))
	}
	env := &Env{
		Command:    command,
		Config:     cfg,
		ConfigPath: path,
		Logger:     logger,
		Metrics:    metrics.New(),
	}
	l, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		env.LedgerErr = err
		logger.Warn("run ledger unavailable, runs will not be recorded",
			zap.String("path", cfg.Ledger.Path), zap.Error(err))
		return env, nil
	}
	l.SetLogger(logger)
	env.Ledger = l
	return env, nil
}

// Finish records a failed run in the metrics, writes the metrics textfile and
// releases the ledger and logger.
func (e *Env) Finish(err error) {
	var se *stage.Error
	if errors.As(err, &se) {
		e.Metrics.Failures.WithLabelValues(string(se.Stage), stage.KindName(err)).Inc()
	}
	if werr := e.Metrics.WriteTextfile(e.Config.Metrics.TextfilePath); werr != nil {
		e.Logger.Warn("metrics textfile not written", zap.Error(werr))
	}
	if cerr := e.Ledger.Close(); cerr != nil {
		e.Logger.Warn("closing run ledger", zap.Error(cerr))
	}
	if err != nil {
		e.Logger.Error("run failed", zap.String("kind", stage.KindName(err)), zap.Error(err))
	}
	e.Logger.Sync()
}

// Main runs fn with a context cancelled on SIGINT or SIGTERM, prints any
// failure to stderr and exits with the mapped code.
func Main(command string, fn func(ctx context.Context, args []string) error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := fn(ctx, os.Args[1:])
	stop()
	code := ExitCode(err)
	if err != nil && code != ExitSuccess {
		fmt.Fprintln(os.Stderr, Message(command, err))
	}
	os.Exit(code)
}
