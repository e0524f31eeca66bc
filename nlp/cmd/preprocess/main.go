package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/oarkflow/arnlp/nlp/cli"
	"github.com/oarkflow/arnlp/nlp/preprocess"
	"github.com/oarkflow/arnlp/nlp/stage"
)

func main() {
	cli.Main("preprocess", run)
}

func run(ctx context.Context, args []string) (err error) {
	fs := cli.FlagSet("preprocess", os.Stderr)
	inputPath := fs.String("input_path", "", "Raw UTF-8 text, one document per line")
	outputPath := fs.String("output_path", "", "Cleaned text, line-aligned with the input")
	metaPath := fs.String("meta_path", "", "Optional per-line metadata as JSON Lines")
	configPath := fs.String("config", "", "Config file (default ./arnlp.yaml if present)")
	if err := cli.Parse(fs, args); err != nil {
		return err
	}
	if err := cli.Require(fs, "input_path", "output_path"); err != nil {
		return err
	}

	env, err := cli.Setup("preprocess", *configPath)
	if err != nil {
		return err
	}
	defer func() { env.Finish(err) }()

	p, err := preprocess.New(env.Config.Preprocess, env.Logger.With(zap.String("stage", string(stage.Preprocess))), env.Metrics)
	if err != nil {
		return cli.Usagef("%v", err)
	}
	var st preprocess.Stats
	err = env.Ledger.Track(stage.Preprocess, "", []string{*inputPath}, *outputPath, func() error {
		var runErr error
		st, runErr = p.Run(ctx, *inputPath, *outputPath, *metaPath)
		return runErr
	})
	if err != nil {
		return err
	}
	fmt.Printf("Preprocessing complete: %s -> %s (%s)\n", *inputPath, *outputPath, st)
	return nil
}
