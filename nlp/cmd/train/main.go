package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/oarkflow/arnlp/nlp/cli"
	"github.com/oarkflow/arnlp/nlp/stage"
	"github.com/oarkflow/arnlp/nlp/task"
	"github.com/oarkflow/arnlp/nlp/trainer"
)

func main() {
	cli.Main("train", run)
}

func run(ctx context.Context, args []string) (err error) {
	fs := cli.FlagSet("train", os.Stderr)
	taskName := fs.String("task", "", "Task to train: "+task.Names())
	dataPath := fs.String("data_path", "", "Labeled JSON Lines (default <data_dir>/<task>/train.jsonl)")
	modelPath := fs.String("model_path", "", "Artifact output (default <model_dir>/<task>_model.bin)")
	configPath := fs.String("config", "", "Config file (default ./arnlp.yaml if present)")
	if err := cli.Parse(fs, args); err != nil {
		return err
	}
	t, err := cli.ParseTask(*taskName)
	if err != nil {
		return err
	}

	env, err := cli.Setup("train", *configPath)
	if err != nil {
		return err
	}
	defer func() { env.Finish(err) }()

	if *dataPath == "" {
		*dataPath = trainer.DataPath(env.Config.Paths, t)
	}
	if *modelPath == "" {
		*modelPath = trainer.ModelPath(env.Config.Paths, t)
	}
	r := &trainer.Runner{
		Config:  env.Config,
		Logger:  env.Logger.With(zap.String("stage", string(stage.Train))),
		Metrics: env.Metrics,
	}
	var res *trainer.Result
	err = env.Ledger.Track(stage.Train, string(t), []string{*dataPath}, *modelPath, func() error {
		var runErr error
		res, runErr = r.Run(ctx, t, *dataPath, *modelPath)
		return runErr
	})
	if err != nil {
		return err
	}
	if res.Warning != nil {
		fmt.Fprintln(os.Stderr, res.Warning)
	}
	fmt.Printf("Model saved to %s (%s)\n", res.ModelPath, res.Report)
	return nil
}
