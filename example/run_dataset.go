package example

import (
	"context"
	"fmt"
	"time"

	"github.com/patrikhermansson/mff/ledger"
	"github.com/patrikhermansson/mff/sampling"
	"github.com/rs/zerolog/log"
)

// RunStrategies runs every request on the same sampler, so all strategies are
// scored on one test set, prints a summary per request and records each run in
// l when it is not nil. Failing requests are logged and skipped.
func RunStrategies(ctx context.Context, smp *sampling.Sampler, requests []sampling.Request, l ledger.Ledger, maxResults int) ([]ledger.Run, error) {
	start := time.Now()
	runs := make([]ledger.Run, 0, len(requests))
	for _, req := range requests {
		if err := ctx.Err(); err != nil {
			return runs, err
		}
		res, err := smp.Run(req)
		if err != nil {
			log.Error().Err(err).Msgf("%s %s failed", req.Strategy, req.Method)
			continue
		}
		fmt.Println(FormatResult(req, res, maxResults))
		run := ledger.NewRun(req, res)
		if l != nil {
			if err := l.Record(ctx, run); err != nil {
				return runs, fmt.Errorf("record %s run: %w", req.Strategy, err)
			}
		}
		runs = append(runs, run)
	}
	fmt.Printf("Ran %d of %d strategies in %.2fs\n", len(runs), len(requests), time.Since(start).Seconds())
	return runs, nil
}
