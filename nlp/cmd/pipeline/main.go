package main

import (
	"context"
	"fmt"
	"os"

	"github.com/oarkflow/arnlp/nlp/cli"
	"github.com/oarkflow/arnlp/nlp/pipeline"
	"github.com/oarkflow/arnlp/nlp/task"
)

func main() {
	cli.Main("pipeline", run)
}

func run(ctx context.Context, args []string) (err error) {
	fs := cli.FlagSet("pipeline", os.Stderr)
	taskName := fs.String("task", "", "Task to run end to end: "+task.Names())
	rawPath := fs.String("raw_path", "", "Raw UTF-8 text to preprocess and predict")
	dataPath := fs.String("data_path", "", "Labeled JSON Lines to train on")
	workDir := fs.String("work_dir", "", "Directory for the cleaned text, artifact and results")
	configPath := fs.String("config", "", "Config file (default ./arnlp.yaml if present)")
	if err := cli.Parse(fs, args); err != nil {
		return err
	}
	t, err := cli.ParseTask(*taskName)
	if err != nil {
		return err
	}
	if err := cli.Require(fs, "raw_path", "data_path", "work_dir"); err != nil {
		return err
	}

	env, err := cli.Setup("pipeline", *configPath)
	if err != nil {
		return err
	}
	defer func() { env.Finish(err) }()

	p := &pipeline.Pipeline{Config: env.Config, Logger: env.Logger, Metrics: env.Metrics, Ledger: env.Ledger}
	res, err := p.Run(ctx, t, *rawPath, *dataPath, *workDir)
	if err != nil {
		return err
	}
	if res.Train.Warning != nil {
		fmt.Fprintln(os.Stderr, res.Train.Warning)
	}
	fmt.Printf("Cleaned %s\nModel saved to %s (%s)\nResults saved to %s (%d documents)\n",
		res.Files.Clean, res.Files.Model, res.Train.Report, res.Files.Output, res.Inference.Documents)
	return nil
}
