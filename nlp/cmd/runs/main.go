package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/oarkflow/arnlp/nlp/cli"
	"github.com/oarkflow/arnlp/nlp/ledger"
	"github.com/oarkflow/arnlp/nlp/stage"
)

var errUnconfirmed = errors.New("no succeeded run produced this file")

func main() {
	cli.Main("runs", run)
}

func run(ctx context.Context, args []string) (err error) {
	fs := cli.FlagSet("runs", os.Stderr)
	limit := fs.Int("limit", 20, "Number of recent runs to list")
	verify := fs.String("verify", "", "Check that this file is the output of a succeeded run")
	configPath := fs.String("config", "", "Config file (default ./arnlp.yaml if present)")
	if err := cli.Parse(fs, args); err != nil {
		return err
	}

	env, err := cli.Setup("runs", *configPath)
	if err != nil {
		return err
	}
	defer func() { env.Finish(err) }()
	if env.LedgerErr != nil {
		return stage.Wrap("runs", stage.ErrIO, env.Config.Ledger.Path, env.LedgerErr)
	}
	if env.Ledger == nil {
		return cli.Usagef("the run ledger is disabled (ledger.path is empty)")
	}

	if *verify != "" {
		digest, err := ledger.FileDigest(*verify)
		if err != nil {
			return stage.Wrap("runs", stage.ErrIO, *verify, err)
		}
		ok, err := env.Ledger.Confirmed(*verify, digest)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s: %w", *verify, errUnconfirmed)
		}
		fmt.Printf("%s: confirmed (%s)\n", *verify, digest)
		return nil
	}

	runs, err := env.Ledger.List(*limit)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTAGE\tTASK\tSTATUS\tKIND\tSTARTED\tOUTPUT")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", r.ID, r.Stage, r.Task, r.Status, r.ErrorKind, r.StartedAt, r.Output)
	}
	return w.Flush()
}
