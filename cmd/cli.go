// Package cmd implements the mff command line: generating datasets, running
// sampling strategies and listing recorded runs.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/patrikhermansson/mff/conf"
	"github.com/patrikhermansson/mff/core"
	"github.com/patrikhermansson/mff/example"
	"github.com/patrikhermansson/mff/ledger"
	"github.com/patrikhermansson/mff/sampling"
)

var errUsage = errors.New("usage: mff <generate|sample|runs> [flags]")

// Execute runs the command named by args[0] and writes its report to out.
func Execute(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "generate":
		return runGenerate(args[1:], out)
	case "sample":
		return runSample(ctx, args[1:], out)
	case "runs":
		return runRuns(ctx, args[1:], out)
	default:
		return fmt.Errorf("unknown command %q: %w", args[0], errUsage)
	}
}

func runGenerate(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	fs.SetOutput(out)
	lj := example.DefaultLennardJones()
	path := fs.String("out", "dataset.gob", "output dataset path")
	n := fs.Int("n", 200, "number of clusters")
	seed := fs.Int64("seed", 0, "random seed, 0 uses MFF_SEED or the clock")
	fs.IntVar(&lj.Atoms, "atoms", lj.Atoms, "atoms per cluster")
	fs.Float64Var(&lj.Box, "box", lj.Box, "side of the placement cube")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rng := core.NewRand(*seed)
	snaps, err := lj.Snapshots(*n, rng)
	if err != nil {
		return err
	}
	ds, err := conf.Clean(snaps, conf.CleanOptions{Natoms: lj.Atoms, Randomized: true, Shuffle: true, Rand: rng})
	if err != nil {
		return err
	}
	if err := ds.Save(*path); err != nil {
		return err
	}
	fmt.Fprintf(out, "wrote %d configurations with %d neighbors to %s\n", ds.Len(), ds.Neighbors(), *path)
	return nil
}

func runSample(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("sample", flag.ContinueOnError)
	fs.SetOutput(out)
	data := fs.String("data", "dataset.gob", "dataset path")
	settingsPath := fs.String("settings", "", "YAML settings file")
	var req sampling.Request
	fs.StringVar(&req.Strategy, "strategy", sampling.StrategyRandom, "random|ivm_e|ivm_f|grid|cur|rvm")
	fs.StringVar(&req.Method, "method", "2b", "2b|3b|mb, or normalized_3b for rvm")
	fs.IntVar(&req.NTrain, "ntrain", 20, "training points to select")
	fs.IntVar(&req.BatchSize, "batch", 10, "probe or batch size")
	fs.IntVar(&req.NBins, "nbins", 20, "grid bins per distance")
	fs.BoolVar(&req.UsePredError, "pred-error", false, "select by predicted uncertainty instead of residual")
	fs.StringVar(&req.Metric, "metric", "energy", "energy|force")
	ntest := fs.Int("ntest", 20, "held-out test points")
	seed := fs.Int64("seed", 0, "random seed, 0 uses MFF_SEED or the clock")
	progress := fs.Bool("progress", false, "show progress bars")
	ledgerKind := fs.String("ledger", "memory", "run ledger backend: memory|sqlite")
	dbPath := fs.String("db-path", "mff.db", "sqlite ledger path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	settings := core.DefaultSettings()
	if *settingsPath != "" {
		var err error
		if settings, err = core.LoadSettings(*settingsPath); err != nil {
			return err
		}
	}
	settings.ApplyEnv()

	ds, err := conf.Load(*data)
	if err != nil {
		return err
	}
	smp, err := sampling.New(ds, sampling.Options{NTest: *ntest, Seed: *seed, Settings: settings, Progress: *progress})
	if err != nil {
		return err
	}
	l, err := ledger.Open(ctx, *ledgerKind, *dbPath)
	if err != nil {
		return err
	}
	defer l.Close()

	res, err := smp.Run(req)
	if err != nil {
		return err
	}
	run := ledger.NewRun(req, res)
	if err := l.Record(ctx, run); err != nil {
		return err
	}
	fmt.Fprintln(out, example.FormatResult(req, res, 20))
	fmt.Fprintf(out, "recorded run %s\n", run.ID)
	return nil
}

func runRuns(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	fs.SetOutput(out)
	dbPath := fs.String("db-path", "mff.db", "sqlite ledger path")
	strategy := fs.String("strategy", "", "only list runs of this strategy")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, err := os.Stat(*dbPath); err != nil {
		return err
	}

	l, err := ledger.Open(ctx, "sqlite", *dbPath)
	if err != nil {
		return err
	}
	defer l.Close()

	runs, err := l.List(ctx, *strategy)
	if err != nil {
		return err
	}
	for _, r := range runs {
		fmt.Fprintln(out, example.FormatRun(r))
	}
	if best, ok := example.Best(runs); ok {
		fmt.Fprintf(out, "best: %s\n", example.FormatRun(best))
	}
	return nil
}
