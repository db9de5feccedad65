package ledger

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryLedger keeps runs in memory for the lifetime of the process.
type MemoryLedger struct {
	mu          sync.RWMutex
	initialized bool
	runs        map[uuid.UUID]Run
}

var _ Ledger = (*MemoryLedger)(nil)

// NewMemoryLedger returns an empty ledger. Call Init before use.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{}
}

// Init clears the ledger and makes it ready for use.
func (l *MemoryLedger) Init(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.initialized = true
	l.runs = make(map[uuid.UUID]Run)
	return nil
}

// Record stores a copy of run, replacing any run with the same id.
func (l *MemoryLedger) Record(_ context.Context, run Run) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.initialized {
		return ErrNotInitialized
	}
	run.Index = append([]int(nil), run.Index...)
	l.runs[run.ID] = run
	return nil
}

// Get returns the run with id, or false when there is none.
func (l *MemoryLedger) Get(_ context.Context, id uuid.UUID) (Run, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if !l.initialized {
		return Run{}, false, ErrNotInitialized
	}
	run, ok := l.runs[id]
	if ok {
		run.Index = append([]int(nil), run.Index...)
	}
	return run, ok, nil
}

// List returns the runs of strategy, or all runs when strategy is empty, oldest first.
func (l *MemoryLedger) List(_ context.Context, strategy string) ([]Run, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if !l.initialized {
		return nil, ErrNotInitialized
	}
	var out []Run
	for _, run := range l.runs {
		if strategy == "" || run.Strategy == strategy {
			run.Index = append([]int(nil), run.Index...)
			out = append(out, run)
		}
	}
	sortRuns(out)
	return out, nil
}

// Close drops every stored run.
func (l *MemoryLedger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.initialized = false
	l.runs = nil
	return nil
}
