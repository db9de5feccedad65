package example

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/patrikhermansson/mff/conf"
	"github.com/patrikhermansson/mff/sampling"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
)

// SweepPoint is the outcome of one training-set size in a sweep.
type SweepPoint struct {
	NTrain int
	Result sampling.Result
	Err    error
}

// RunSweep runs one strategy for every training-set size in ntrains. Each size
// gets its own sampler built from opts, so the points can run concurrently;
// with a fixed opts.Seed they also share the test set. The number of worker threads is read from the
// MFF_BENCH_NTRD environment variable.
func RunSweep(ds conf.Dataset, opts sampling.Options, req sampling.Request, ntrains []int) []SweepPoint {
	threads := 1
	if env := os.Getenv("MFF_BENCH_NTRD"); env != "" {
		if t, err := strconv.Atoi(env); err == nil && t > 0 {
			threads = t
			log.Info().Msgf("Using %d threads for the sweep", threads)
		}
	}

	start := time.Now()
	points := make([]SweepPoint, len(ntrains))
	bar := progressbar.NewOptions(len(ntrains),
		progressbar.OptionSetDescription(req.Strategy),
		progressbar.OptionOnCompletion(func() { fmt.Print("\n") }),
	)

	jobs := make(chan int)
	var wg sync.WaitGroup
	var mu sync.Mutex
	for w := 0; w < threads; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				p := SweepPoint{NTrain: ntrains[i]}
				smp, err := sampling.New(ds, opts)
				if err == nil {
					r := req
					r.NTrain = ntrains[i]
					p.Result, p.Err = smp.Run(r)
				} else {
					p.Err = err
				}
				points[i] = p
				mu.Lock()
				_ = bar.Add(1)
				mu.Unlock()
			}
		}()
	}
	for i := range ntrains {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	log.Info().Msgf("Swept %d training sizes in %.2fs", len(ntrains), time.Since(start).Seconds())
	return points
}
