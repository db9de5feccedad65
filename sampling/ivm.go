package sampling

import (
	"fmt"
	"math"
	"time"

	"github.com/patrikhermansson/mff/core"
	"github.com/patrikhermansson/mff/gp"
	"github.com/rs/zerolog/log"
)

type ivmState int

const (
	stateInitializing ivmState = iota
	stateSampling
	stateSelecting
	stateUpdating
	stateTerminal
)

func (s ivmState) String() string {
	switch s {
	case stateInitializing:
		return "initializing"
	case stateSampling:
		return "sampling"
	case stateSelecting:
		return "selecting"
	case stateUpdating:
		return "updating"
	case stateTerminal:
		return "terminal"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ivm is one run of incremental-variance selection. Each iteration draws a
// probe batch from the unselected pool, picks the probe the current model
// knows least about and adds it to the model.
type ivm struct {
	s            *Sampler
	model        gp.Regressor
	sel          *selection
	forces       bool
	batch        int
	usePredError bool

	state  ivmState
	iter   int
	budget int
	probe  []int
	worst  int
	bar    progress
}

// IVMEnergy runs incremental-variance selection on energies and evaluates on energies.
// The selected count is min(ntrain, pool size).
func (s *Sampler) IVMEnergy(method string, ntrain, batch int, usePredError bool) (Result, error) {
	return s.runIVM(method, ntrain, batch, usePredError, false, EnergyMetric)
}

// IVMForce runs incremental-variance selection on forces and evaluates on metric.
func (s *Sampler) IVMForce(method string, ntrain, batch int, usePredError bool, metric Metric) (Result, error) {
	return s.runIVM(method, ntrain, batch, usePredError, true, metric)
}

func (s *Sampler) runIVM(method string, ntrain, batch int, usePredError, forces bool, metric Metric) (Result, error) {
	start := time.Now()
	if err := validateMethod(method, modelMethods); err != nil {
		return Result{}, err
	}
	if ntrain < 2 {
		return Result{}, fmt.Errorf("ntrain must be at least 2, got %d: %w", ntrain, core.ErrInvalidParameter)
	}
	if batch < 1 {
		return Result{}, fmt.Errorf("batch size must be at least 1, got %d: %w", batch, core.ErrInvalidParameter)
	}
	if s.train.Len() < 2 {
		return Result{}, fmt.Errorf("pool of %d cannot bootstrap two points: %w", s.train.Len(), core.ErrInsufficientData)
	}
	m, err := s.model(method)
	if err != nil {
		return Result{}, err
	}

	budget := min(ntrain-2, s.train.Len()-2)
	run := &ivm{
		s:            s,
		model:        m,
		sel:          newSelection(s.train.Len()),
		forces:       forces,
		batch:        batch,
		usePredError: usePredError,
		budget:       budget,
		bar:          s.newProgress(budget, "ivm"),
	}
	for run.state != stateTerminal {
		if err := run.step(); err != nil {
			return Result{}, fmt.Errorf("ivm %s in state %v: %w", method, run.state, err)
		}
	}
	run.bar.finish()

	e, err := s.evaluate(m, metric)
	if err != nil {
		return Result{}, err
	}
	return result(e, run.sel.indices(), start), nil
}

func (v *ivm) step() error {
	prev := v.state
	switch v.state {
	case stateInitializing:
		boot := v.s.rng.Perm(v.s.train.Len())[:2]
		if err := v.fit(boot); err != nil {
			return err
		}
		for _, i := range boot {
			if err := v.sel.mark(i); err != nil {
				return err
			}
		}
		v.state = v.next()

	case stateSampling:
		avail := v.sel.available()
		size := min(v.batch, len(avail))
		if size == 0 {
			v.state = stateTerminal
			break
		}
		perm := v.s.rng.Perm(len(avail))[:size]
		v.probe = make([]int, size)
		for k, p := range perm {
			v.probe[k] = avail[p]
		}
		v.state = stateSelecting

	case stateSelecting:
		worst, err := v.selectWorst()
		if err != nil {
			return err
		}
		v.worst = worst
		v.state = stateUpdating

	case stateUpdating:
		if err := v.update(v.worst); err != nil {
			return err
		}
		if err := v.sel.mark(v.worst); err != nil {
			return err
		}
		v.iter++
		v.bar.add(1)
		v.state = v.next()

	case stateTerminal:
		return nil
	}
	if v.state != prev {
		log.Debug().Msgf("IVM iteration %d: %v -> %v", v.iter, prev, v.state)
	}
	return nil
}

func (v *ivm) next() ivmState {
	if v.iter < v.budget {
		return stateSampling
	}
	return stateTerminal
}

func (v *ivm) fit(idx []int) error {
	sub := v.s.train.Subset(idx)
	if v.forces {
		return v.model.Fit(sub.Confs, sub.Forces)
	}
	return v.model.FitEnergy(sub.Confs, sub.Energies)
}

func (v *ivm) update(i int) error {
	if v.forces {
		return v.model.UpdateForce(v.s.train.Confs[i], v.s.train.Forces[i])
	}
	return v.model.UpdateEnergy(v.s.train.Confs[i], v.s.train.Energies[i])
}

// selectWorst returns the probe with the largest predictive standard deviation,
// or the largest absolute residual when predicted uncertainty is not used.
// For forces both are summed over the three components.
func (v *ivm) selectWorst() (int, error) {
	sub := v.s.train.Subset(v.probe)
	scores := make([]float64, len(v.probe))
	if v.forces {
		pred, std, err := v.model.Predict(sub.Confs, v.usePredError)
		if err != nil {
			return 0, err
		}
		for k := range v.probe {
			var d float64
			for c := 0; c < 3; c++ {
				if v.usePredError {
					d += math.Abs(std[k][c])
				} else {
					d += math.Abs(pred[k][c] - sub.Forces[k][c])
				}
			}
			scores[k] = d
		}
	} else {
		pred, std, err := v.model.PredictEnergy(sub.Confs, v.usePredError)
		if err != nil {
			return 0, err
		}
		for k := range v.probe {
			if v.usePredError {
				scores[k] = std[k]
			} else {
				scores[k] = math.Abs(pred[k] - sub.Energies[k])
			}
		}
	}
	best := 0
	for k, d := range scores {
		if d > scores[best] {
			best = k
		}
	}
	return v.probe[best], nil
}
