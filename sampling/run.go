package sampling

import (
	"fmt"
	"slices"

	"github.com/patrikhermansson/mff/core"
	"github.com/rs/zerolog/log"
)

// Strategy names accepted by Run.
const (
	StrategyRandom = "random"
	StrategyIVME   = "ivm_e"
	StrategyIVMF   = "ivm_f"
	StrategyGrid   = "grid"
	StrategyCUR    = "cur"
	StrategyRVM    = "rvm"
)

var (
	strategies   = []string{StrategyRandom, StrategyIVME, StrategyIVMF, StrategyGrid, StrategyCUR, StrategyRVM}
	modelMethods = []string{"2b", "3b", "mb"}
	gridMethods  = []string{"2b", "3b"}
	curMethods   = []string{"2b", "3b"}
	rvmMethods   = []string{"2b", "3b", "mb", "normalized_3b"}
)

// Strategies returns the strategy names accepted by Run.
func Strategies() []string { return slices.Clone(strategies) }

func validateMethod(method string, allowed []string) error {
	if !slices.Contains(allowed, method) {
		return fmt.Errorf("method %q not in %v: %w", method, allowed, core.ErrUnsupportedKernel)
	}
	return nil
}

// Request names one strategy invocation. Fields a strategy does not use are
// ignored.
type Request struct {
	Strategy     string
	Method       string
	NTrain       int
	BatchSize    int
	NBins        int
	UsePredError bool
	Metric       string
}

// Run validates r and dispatches it to the named strategy.
func (s *Sampler) Run(r Request) (Result, error) {
	if !slices.Contains(strategies, r.Strategy) {
		return Result{}, fmt.Errorf("sampling strategy %q: %w", r.Strategy, core.ErrUnsupportedMethod)
	}
	allowed := modelMethods
	switch r.Strategy {
	case StrategyGrid:
		allowed = gridMethods
	case StrategyCUR:
		allowed = curMethods
	case StrategyRVM:
		allowed = rvmMethods
	}
	if err := validateMethod(r.Method, allowed); err != nil {
		return Result{}, err
	}
	metric, err := ParseMetric(r.Metric)
	if err != nil {
		return Result{}, err
	}

	log.Info().Msgf("Running %s sampling with the %s method", r.Strategy, r.Method)
	switch r.Strategy {
	case StrategyRandom:
		return s.Random(r.Method, r.NTrain, metric)
	case StrategyIVME:
		return s.IVMEnergy(r.Method, r.NTrain, r.BatchSize, r.UsePredError)
	case StrategyIVMF:
		return s.IVMForce(r.Method, r.NTrain, r.BatchSize, r.UsePredError, metric)
	case StrategyGrid:
		return s.Grid(r.Method, r.NBins, metric)
	case StrategyCUR:
		return s.CUR(r.Method, r.NTrain, r.BatchSize)
	default:
		return s.RVM(r.Method, r.BatchSize)
	}
}
