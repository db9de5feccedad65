// Package sampling compares strategies for picking a small, information-dense
// training set out of a pool of labeled configurations. Every strategy reports
// the same Result against one fixed held-out test set.
package sampling

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/patrikhermansson/mff/conf"
	"github.com/patrikhermansson/mff/core"
	"github.com/patrikhermansson/mff/gp"
	"github.com/patrikhermansson/mff/gram"
	"github.com/patrikhermansson/mff/kernels"
	"github.com/rs/zerolog/log"
)

// Metric selects the labels a strategy is evaluated on.
type Metric string

const (
	EnergyMetric Metric = "energy"
	ForceMetric  Metric = "force"
)

// ParseMetric validates a metric name.
func ParseMetric(s string) (Metric, error) {
	switch m := Metric(strings.ToLower(strings.TrimSpace(s))); m {
	case "", EnergyMetric:
		return EnergyMetric, nil
	case ForceMetric:
		return ForceMetric, nil
	}
	return "", fmt.Errorf("error metric %q: %w", s, core.ErrUnsupportedMethod)
}

// Result is what every strategy reports. Index holds positions in the
// training pool.
type Result struct {
	MAE     float64
	SMAE    float64
	RMSE    float64
	Index   []int
	Elapsed time.Duration
}

// Options configures a Sampler.
type Options struct {
	NTest    int
	Seed     int64 // 0 falls back to core.GetSeed
	Settings core.Settings
	Pool     gram.Pool      // nil selects a pool from Settings
	Store    *kernels.Store // nil creates a private store
	Progress bool           // show progress bars on long scans
}

// Sampler owns a train/test split and a random source. Strategies run
// sequentially; a Sampler is not safe for concurrent use.
type Sampler struct {
	train    conf.Dataset
	test     conf.Dataset
	split    conf.TrainTestSplit
	elements []float64
	settings core.Settings
	pool     gram.Pool
	store    *kernels.Store
	rng      *rand.Rand
	progress bool
}

// New centres the dataset energies, splits off opts.NTest test points and
// prepares the shared kernel store and worker pool.
func New(ds conf.Dataset, opts Options) (*Sampler, error) {
	s := opts.Settings
	if s == (core.Settings{}) {
		s = core.DefaultSettings()
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	pool := opts.Pool
	if pool == nil {
		var err error
		if pool, err = gram.NewPool(s.Pool, s.NCores); err != nil {
			return nil, err
		}
	}
	store := opts.Store
	if store == nil {
		store = kernels.NewStore()
	}
	rng := core.NewRand(opts.Seed)
	split, err := conf.Split(ds.CenteredEnergies(), opts.NTest, rng)
	if err != nil {
		return nil, err
	}
	log.Info().Msgf("Sampler ready: %d pool configurations, %d test configurations, %d workers",
		split.Train.Len(), split.Test.Len(), pool.Workers())
	return &Sampler{
		train:    split.Train,
		test:     split.Test,
		split:    split,
		elements: ds.Elements(),
		settings: s,
		pool:     pool,
		store:    store,
		rng:      rng,
		progress: opts.Progress,
	}, nil
}

// Pool returns the training pool.
func (s *Sampler) Pool() conf.Dataset { return s.train }

// Test returns the held-out test set.
func (s *Sampler) Test() conf.Dataset { return s.test }

// Split returns the split, including dataset positions of pool and test points.
func (s *Sampler) Split() conf.TrainTestSplit { return s.split }

func (s *Sampler) model(method string) (*gp.GaussianProcess, error) {
	return gp.NewModel(method, s.elements, s.store, s.settings, gp.WithPool(s.pool))
}

func (s *Sampler) kernel(kind kernels.Kind, sigma float64) (kernels.Kernel, error) {
	return kernels.New(s.store, kernels.Key{Kind: kind, Species: kernels.SpeciesFor(s.elements)},
		kernels.Theta{Sigma: sigma, Decay: s.settings.Theta, Cutoff: s.settings.RCut})
}

func (s *Sampler) builder(kind kernels.Kind, sigma float64) (*gram.Builder, error) {
	k, err := s.kernel(kind, sigma)
	if err != nil {
		return nil, err
	}
	return gram.NewBuilder(k, s.pool), nil
}

// fit trains m on the pool points idx with the labels of metric.
func (s *Sampler) fit(m gp.Regressor, idx []int, metric Metric) error {
	sub := s.train.Subset(idx)
	if metric == ForceMetric {
		return m.Fit(sub.Confs, sub.Forces)
	}
	return m.FitEnergy(sub.Confs, sub.Energies)
}

// evaluate scores m on the test set.
func (s *Sampler) evaluate(m gp.Regressor, metric Metric) (gp.Errors, error) {
	if metric == ForceMetric {
		pred, _, err := m.Predict(s.test.Confs, false)
		if err != nil {
			return gp.Errors{}, err
		}
		return gp.ForceErrors(pred, s.test.Forces), nil
	}
	pred, _, err := m.PredictEnergy(s.test.Confs, false)
	if err != nil {
		return gp.Errors{}, err
	}
	return gp.EnergyErrors(pred, s.test.Energies), nil
}

func result(e gp.Errors, idx []int, start time.Time) Result {
	return Result{MAE: e.MAE, SMAE: e.SMAE, RMSE: e.RMSE, Index: idx, Elapsed: time.Since(start)}
}

// TestForces fits a force model of the given method on the pool points index
// and reports its force errors on the test set.
func (s *Sampler) TestForces(index []int, method string) (gp.Errors, error) {
	if err := validateMethod(method, modelMethods); err != nil {
		return gp.Errors{}, err
	}
	if err := s.checkIndex(index); err != nil {
		return gp.Errors{}, err
	}
	m, err := s.model(method)
	if err != nil {
		return gp.Errors{}, err
	}
	if err := s.fit(m, index, ForceMetric); err != nil {
		return gp.Errors{}, err
	}
	e, err := s.evaluate(m, ForceMetric)
	if err != nil {
		return gp.Errors{}, err
	}
	log.Info().Msgf("MAEF: %.4f SMAEF: %.4f RMSE: %.4f", e.MAE, e.SMAE, e.RMSE)
	return e, nil
}

func (s *Sampler) checkIndex(index []int) error {
	if len(index) == 0 {
		return fmt.Errorf("empty training index: %w", core.ErrInsufficientData)
	}
	for _, i := range index {
		if i < 0 || i >= s.train.Len() {
			return fmt.Errorf("training index %d outside pool of %d: %w", i, s.train.Len(), core.ErrInvalidParameter)
		}
	}
	return nil
}
