// Package kernels provides the many-body correlation functions used as Gaussian
// process covariances over atomic environments.
package kernels

import (
	"math"
	"strings"

	"github.com/patrikhermansson/mff/conf"
	"github.com/patrikhermansson/mff/core"
	"gonum.org/v1/gonum/mat"
)

// Kernel correlates two configurations. EF is the negative gradient of EE with
// respect to the central atom of b; FF is the mixed Hessian. Implementations are
// pure and safe for concurrent use.
type Kernel interface {
	EE(a, b conf.Configuration) float64
	EF(a, b conf.Configuration) core.Vec3
	FF(a, b conf.Configuration) core.Mat3
	Name() string
}

// Evaluator binds a compiled artifact to its hyperparameters.
type Evaluator struct {
	compiled *Compiled
	theta    Theta
}

var _ Kernel = (*Evaluator)(nil)

// New loads the artifact for key from store and binds it to theta.
func New(store *Store, key Key, theta Theta) (*Evaluator, error) {
	if err := theta.Validate(); err != nil {
		return nil, err
	}
	c, err := store.Load(key)
	if err != nil {
		return nil, err
	}
	return &Evaluator{compiled: c, theta: theta}, nil
}

func (e *Evaluator) EE(a, b conf.Configuration) float64 { return e.compiled.EE(a, b, e.theta) }
func (e *Evaluator) EF(a, b conf.Configuration) core.Vec3 { return e.compiled.EF(a, b, e.theta) }
func (e *Evaluator) FF(a, b conf.Configuration) core.Mat3 { return e.compiled.FF(a, b, e.theta) }
func (e *Evaluator) Name() string { return e.compiled.Key.String() }

// Theta returns the bound hyperparameters.
func (e *Evaluator) Theta() Theta { return e.theta }

type sum []Kernel

// Sum returns the additive combination of kernels, e.g. two- plus three-body.
func Sum(ks ...Kernel) Kernel {
	if len(ks) == 1 {
		return ks[0]
	}
	return sum(ks)
}

func (s sum) EE(a, b conf.Configuration) float64 {
	var v float64
	for _, k := range s {
		v += k.EE(a, b)
	}
	return v
}

func (s sum) EF(a, b conf.Configuration) core.Vec3 {
	var v core.Vec3
	for _, k := range s {
		v = v.Add(k.EF(a, b))
	}
	return v
}

func (s sum) FF(a, b conf.Configuration) core.Mat3 {
	var v core.Mat3
	for _, k := range s {
		v = v.Add(k.FF(a, b))
	}
	return v
}

func (s sum) Name() string {
	names := make([]string, len(s))
	for i, k := range s {
		names[i] = k.Name()
	}
	return strings.Join(names, "+")
}

// NormalizedSquared rescales a cross energy Gram matrix g between sets X1 and X2
// to (g_ij / sqrt(d1_i d2_j))², where d1 and d2 are the self-correlations of the
// two sets.
func NormalizedSquared(g *mat.Dense, d1, d2 []float64) *mat.Dense {
	r, c := g.Dims()
	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := g.At(i, j) / math.Sqrt(d1[i]*d2[j])
			out.Set(i, j, v*v)
		}
	}
	return out
}
