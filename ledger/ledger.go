// Package ledger records the outcome of sampling runs so strategies can be
// compared across invocations.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/patrikhermansson/mff/sampling"
)

// ErrNotInitialized is returned by ledgers used before Init or after Close.
var ErrNotInitialized = errors.New("ledger is not initialized")

// Run is one recorded strategy invocation.
type Run struct {
	ID        uuid.UUID
	Strategy  string
	Method    string
	NTrain    int
	MAE       float64
	SMAE      float64
	RMSE      float64
	Index     []int
	Elapsed   time.Duration
	CreatedAt time.Time
}

// NewRun stamps the result of req with a fresh id.
func NewRun(req sampling.Request, res sampling.Result) Run {
	return Run{
		ID:        uuid.New(),
		Strategy:  req.Strategy,
		Method:    req.Method,
		NTrain:    len(res.Index),
		MAE:       res.MAE,
		SMAE:      res.SMAE,
		RMSE:      res.RMSE,
		Index:     append([]int(nil), res.Index...),
		Elapsed:   res.Elapsed,
		CreatedAt: time.Now().UTC(),
	}
}

// Ledger persists runs. Recording a run whose id already exists replaces it.
type Ledger interface {
	Init(ctx context.Context) error
	Record(ctx context.Context, run Run) error
	Get(ctx context.Context, id uuid.UUID) (Run, bool, error)
	// List returns the runs of one strategy, or of all strategies when
	// strategy is empty, oldest first.
	List(ctx context.Context, strategy string) ([]Run, error)
	Close() error
}

func sortRuns(runs []Run) {
	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].CreatedAt.Before(runs[j].CreatedAt)
		}
		return runs[i].ID.String() < runs[j].ID.String()
	})
}

// Open returns an initialized ledger for the backend kind: "memory" or
// "sqlite" at path.
func Open(ctx context.Context, kind, path string) (Ledger, error) {
	var l Ledger
	switch kind {
	case "", "memory":
		l = NewMemoryLedger()
	case "sqlite":
		l = NewSQLiteLedger(path)
	default:
		return nil, fmt.Errorf("unsupported ledger backend: %s", kind)
	}
	if err := l.Init(ctx); err != nil {
		return nil, err
	}
	return l, nil
}
