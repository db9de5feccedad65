package sampling

import (
	"fmt"
	"sort"
	"time"

	"github.com/patrikhermansson/mff/core"
	"github.com/rs/zerolog/log"
)

// Random draws ntrain pool points uniformly without replacement, fits a fresh
// model of the given method on them and evaluates it on metric.
func (s *Sampler) Random(method string, ntrain int, metric Metric) (Result, error) {
	start := time.Now()
	if err := validateMethod(method, modelMethods); err != nil {
		return Result{}, err
	}
	if ntrain < 1 {
		return Result{}, fmt.Errorf("ntrain must be at least 1, got %d: %w", ntrain, core.ErrInvalidParameter)
	}
	if ntrain > s.train.Len() {
		return Result{}, fmt.Errorf("pool of %d cannot provide %d training points: %w", s.train.Len(), ntrain, core.ErrInsufficientData)
	}

	idx := s.rng.Perm(s.train.Len())[:ntrain]
	sort.Ints(idx)
	m, err := s.model(method)
	if err != nil {
		return Result{}, err
	}
	if err := s.fit(m, idx, metric); err != nil {
		return Result{}, err
	}
	e, err := s.evaluate(m, metric)
	if err != nil {
		return Result{}, err
	}
	log.Debug().Msgf("Random %s: %d points, MAE %.4f", method, ntrain, e.MAE)
	return result(e, idx, start), nil
}
