package sampling

import (
	"fmt"
	"time"

	"github.com/patrikhermansson/mff/conf"
	"github.com/patrikhermansson/mff/core"
	"github.com/patrikhermansson/mff/gp"
	"github.com/patrikhermansson/mff/kernels"
	"github.com/patrikhermansson/mff/rvm"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"
)

// rvmBasis computes the energy design matrix between two sets of
// configurations for one RVM method.
type rvmBasis func(X1, X2 []conf.Configuration) (*mat.Dense, error)

func (s *Sampler) rvmBasis(method string) (rvmBasis, error) {
	var kind kernels.Kind
	var sigma float64
	switch method {
	case "2b":
		kind, sigma = kernels.TwoBody, s.settings.Sigma2B
	case "3b", "normalized_3b":
		kind, sigma = kernels.ThreeBody, s.settings.Sigma3B
	case "mb":
		kind, sigma = kernels.Overlap, s.settings.SigmaMB
	default:
		return nil, fmt.Errorf("rvm kernel %q: %w", method, core.ErrUnsupportedKernel)
	}
	b, err := s.builder(kind, sigma)
	if err != nil {
		return nil, err
	}
	if method != "normalized_3b" {
		return b.CrossEE, nil
	}
	k := b.Kernel
	return func(X1, X2 []conf.Configuration) (*mat.Dense, error) {
		g, err := b.CrossEE(X1, X2)
		if err != nil {
			return nil, err
		}
		return kernels.NormalizedSquared(g, selfCorrelations(k, X1), selfCorrelations(k, X2)), nil
	}, nil
}

func selfCorrelations(k kernels.Kernel, X []conf.Configuration) []float64 {
	out := make([]float64, len(X))
	for i, x := range X {
		out[i] = k.EE(x, x)
	}
	return out
}

// RVM fits a relevance vector regressor batch by batch. Each batch, together
// with the relevance vectors found so far, is used as both training set and
// basis; the surviving relevance vectors are carried to the next batch. The
// final regressor is scored with energy errors on the test set.
func (s *Sampler) RVM(method string, batch int) (Result, error) {
	start := time.Now()
	if err := validateMethod(method, rvmMethods); err != nil {
		return Result{}, err
	}
	if batch < 1 {
		return Result{}, fmt.Errorf("batch size must be positive, got %d: %w", batch, core.ErrInvalidParameter)
	}
	basis, err := s.rvmBasis(method)
	if err != nil {
		return Result{}, err
	}

	batches := arraySplit(s.train.Len(), s.train.Len()/batch+1)
	var (
		index []int
		model *rvm.RVR
	)
	for n, part := range batches {
		batchIndex := union(index, part)
		if len(batchIndex) == 0 {
			continue
		}
		X := s.train.Subset(batchIndex)
		g, err := basis(X.Confs, X.Confs)
		if err != nil {
			return Result{}, err
		}
		model = rvm.New()
		if err := model.Fit(g, X.Energies); err != nil {
			return Result{}, err
		}
		active := model.Active()
		index = make([]int, len(active))
		for i, a := range active {
			index[i] = batchIndex[a]
		}
		log.Debug().Msgf("RVM batch %d/%d: %d relevance vectors", n+1, len(batches), len(index))
	}
	if model == nil {
		return Result{}, fmt.Errorf("rvm on an empty pool: %w", core.ErrInsufficientData)
	}

	kstar, err := basis(s.test.Confs, s.train.Subset(index).Confs)
	if err != nil {
		return Result{}, err
	}
	pred, _, err := model.PredictDist(kstar)
	if err != nil {
		return Result{}, err
	}
	e := gp.EnergyErrors(pred, s.test.Energies)
	log.Info().Msgf("RVM %s: %d relevance vectors, MAE %.4f", method, len(index), e.MAE)
	return result(e, index, start), nil
}
