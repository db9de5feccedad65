package gp

import (
	"fmt"
	"strings"

	"github.com/patrikhermansson/mff/core"
	"github.com/patrikhermansson/mff/kernels"
)

// NewModel builds the GP used for a body-order method: "2b" is a two-body model,
// "3b" the additive two- plus three-body model and "mb" the many-body model.
// The species arity follows the number of distinct elements.
func NewModel(method string, elements []float64, store *kernels.Store, s core.Settings, opts ...Option) (*GaussianProcess, error) {
	k, err := ModelKernel(method, elements, store, s)
	if err != nil {
		return nil, err
	}
	return New(k, s.Noise, opts...), nil
}

// ModelKernel returns the covariance kernel NewModel would use.
func ModelKernel(method string, elements []float64, store *kernels.Store, s core.Settings) (kernels.Kernel, error) {
	species := kernels.SpeciesFor(elements)
	theta := func(sigma float64) kernels.Theta {
		return kernels.Theta{Sigma: sigma, Decay: s.Theta, Cutoff: s.RCut}
	}
	switch strings.ToLower(strings.TrimSpace(method)) {
	case "2b":
		return kernels.New(store, kernels.Key{Kind: kernels.TwoBody, Species: species}, theta(s.Sigma2B))
	case "3b":
		k2, err := kernels.New(store, kernels.Key{Kind: kernels.TwoBody, Species: species}, theta(s.Sigma2B))
		if err != nil {
			return nil, err
		}
		k3, err := kernels.New(store, kernels.Key{Kind: kernels.ThreeBody, Species: species}, theta(s.Sigma3B))
		if err != nil {
			return nil, err
		}
		return kernels.Sum(k2, k3), nil
	case "mb":
		return kernels.New(store, kernels.Key{Kind: kernels.ManyBody, Species: species}, theta(s.SigmaMB))
	}
	return nil, fmt.Errorf("model %q: %w", method, core.ErrUnsupportedKernel)
}
