package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/oarkflow/arnlp/nlp/cli"
	"github.com/oarkflow/arnlp/nlp/inference"
	"github.com/oarkflow/arnlp/nlp/stage"
	"github.com/oarkflow/arnlp/nlp/task"
)

func main() {
	cli.Main("inference", run)
}

func run(ctx context.Context, args []string) (err error) {
	fs := cli.FlagSet("inference", os.Stderr)
	taskName := fs.String("task", "", "Task the artifact was trained for: "+task.Names())
	modelPath := fs.String("model_path", "", "Model artifact")
	inputPath := fs.String("input_path", "", "Cleaned text, one document per line")
	outputPath := fs.String("output_path", "", "Predictions, one per input line")
	referencePath := fs.String("reference_path", "", "Optional labeled JSON Lines aligned with the input, for scoring")
	configPath := fs.String("config", "", "Config file (default ./arnlp.yaml if present)")
	if err := cli.Parse(fs, args); err != nil {
		return err
	}
	t, err := cli.ParseTask(*taskName)
	if err != nil {
		return err
	}
	if err := cli.Require(fs, "model_path", "input_path", "output_path"); err != nil {
		return err
	}

	env, err := cli.Setup("inference", *configPath)
	if err != nil {
		return err
	}
	defer func() { env.Finish(err) }()

	r := &inference.Runner{
		Config:  env.Config,
		Logger:  env.Logger.With(zap.String("stage", string(stage.Inference))),
		Metrics: env.Metrics,
	}
	inputs := []string{*modelPath, *inputPath}
	if *referencePath != "" {
		inputs = append(inputs, *referencePath)
	}
	var res *inference.Result
	err = env.Ledger.Track(stage.Inference, string(t), inputs, *outputPath, func() error {
		var runErr error
		res, runErr = r.Run(ctx, t, *modelPath, *inputPath, *outputPath, *referencePath)
		return runErr
	})
	if err != nil {
		return err
	}
	fmt.Printf("Results saved to %s (%d documents)\n", *outputPath, res.Documents)
	if res.Metric != "" {
		fmt.Printf("%s: %.4f\n", res.Metric, res.Score)
	}
	return nil
}
