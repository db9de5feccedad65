//go:build ignore
// +build ignore

package main

import (
	"context"
	"os"

	"github.com/patrikhermansson/mff/core"
	"github.com/patrikhermansson/mff/example"
	"github.com/patrikhermansson/mff/ledger"
	"github.com/patrikhermansson/mff/sampling"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Set the logger to output to the console.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	ctx := context.Background()

	settings := core.DefaultSettings()
	settings.Sigma2B = 0.3
	settings.Sigma3B = 0.6
	settings.SigmaMB = 0.5
	settings.RCut = 4.0
	settings.Noise = 0.01
	settings.ApplyEnv()

	rng := core.NewRand(42)
	ds, err := example.LoadDataset("example/data/lj10.gob", 300, example.DefaultLennardJones(), rng)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load dataset")
	}

	smp, err := sampling.New(ds, sampling.Options{NTest: 50, Seed: 42, Settings: settings, Progress: true})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create sampler")
	}

	l, err := ledger.Open(ctx, "sqlite", "example/data/runs.db")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open ledger")
	}
	defer l.Close()

	requests := []sampling.Request{
		{Strategy: sampling.StrategyRandom, Method: "2b", NTrain: 40},
		{Strategy: sampling.StrategyIVME, Method: "2b", NTrain: 40, BatchSize: 20},
		{Strategy: sampling.StrategyIVMF, Method: "2b", NTrain: 20, BatchSize: 10, UsePredError: true},
		{Strategy: sampling.StrategyGrid, Method: "2b", NBins: 20},
		{Strategy: sampling.StrategyCUR, Method: "2b", NTrain: 40, BatchSize: 100},
		{Strategy: sampling.StrategyRVM, Method: "2b", BatchSize: 100},
		{Strategy: sampling.StrategyRVM, Method: "normalized_3b", BatchSize: 100},
	}
	runs, err := example.RunStrategies(ctx, smp, requests, l, 10)
	if err != nil {
		log.Fatal().Err(err).Msg("Comparison failed")
	}
	if best, ok := example.Best(runs); ok {
		log.Info().Msgf("Best run: %s", example.FormatRun(best))
	}
}
