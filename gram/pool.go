package gram

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/patrikhermansson/mff/core"
	"golang.org/x/sync/errgroup"
)

// ErrWorkerFailed wraps a failure inside a Gram worker.
var ErrWorkerFailed = errors.New("gram worker failed")

// Job evaluates one chunk and returns its plain result array.
type Job func(c Chunk) ([]float64, error)

// Pool runs independent chunk jobs and blocks until all of them have finished.
// Results are returned in chunk order regardless of completion order. If any
// job fails, Map fails.
type Pool interface {
	Workers() int
	Map(chunks []Chunk, job Job) ([][]float64, error)
}

// Serial runs every chunk on the calling goroutine.
type Serial struct{}

func (Serial) Workers() int { return 1 }

func (Serial) Map(chunks []Chunk, job Job) ([][]float64, error) {
	out := make([][]float64, len(chunks))
	for p, c := range chunks {
		res, err := run(job, c)
		if err != nil {
			return nil, err
		}
		out[p] = res
	}
	return out, nil
}

// Goroutines runs chunks on up to N goroutines. N < 1 means runtime.NumCPU().
type Goroutines struct {
	N int
}

func (g Goroutines) Workers() int {
	if g.N < 1 {
		return runtime.NumCPU()
	}
	return g.N
}

func (g Goroutines) Map(chunks []Chunk, job Job) ([][]float64, error) {
	out := make([][]float64, len(chunks))
	var eg errgroup.Group
	eg.SetLimit(g.Workers())
	for p, c := range chunks {
		eg.Go(func() error {
			res, err := run(job, c)
			if err != nil {
				return err
			}
			out[p] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// run invokes job, turning a panic into an error so that it reaches the caller.
func run(job Job, c Chunk) (res []float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("chunk [%d, %d): %v: %w", c.Start, c.End, r, ErrWorkerFailed)
		}
	}()
	res, err = job(c)
	if err != nil {
		return nil, fmt.Errorf("chunk [%d, %d): %w", c.Start, c.End, err)
	}
	return res, nil
}

// NewPool selects a pool by name: "serial" or "goroutine".
func NewPool(name string, workers int) (Pool, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "serial":
		return Serial{}, nil
	case "goroutine", "goroutines":
		return Goroutines{N: workers}, nil
	}
	return nil, fmt.Errorf("worker pool %q: %w", name, core.ErrUnsupportedMethod)
}
