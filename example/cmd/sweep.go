//go:build ignore
// +build ignore

package main

import (
	"fmt"
	"os"

	"github.com/patrikhermansson/mff/core"
	"github.com/patrikhermansson/mff/example"
	"github.com/patrikhermansson/mff/sampling"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Set the logger to output to the console.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	settings := core.DefaultSettings()
	settings.Sigma2B = 0.3
	settings.RCut = 4.0
	settings.Noise = 0.01

	ds, err := example.LoadDataset("example/data/lj10.gob", 300, example.DefaultLennardJones(), core.NewRand(42))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load dataset")
	}

	opts := sampling.Options{NTest: 50, Seed: 7, Settings: settings}
	for _, strategy := range []string{sampling.StrategyRandom, sampling.StrategyIVME} {
		req := sampling.Request{Strategy: strategy, Method: "2b", BatchSize: 20}
		for _, p := range example.RunSweep(ds, opts, req, []int{5, 10, 20, 40, 80}) {
			if p.Err != nil {
				fmt.Printf("%-6s n=%-4d error: %v\n", strategy, p.NTrain, p.Err)
				continue
			}
			fmt.Printf("%-6s n=%-4d MAE=%.4f RMSE=%.4f\n", strategy, p.NTrain, p.Result.MAE, p.Result.RMSE)
		}
	}
}
