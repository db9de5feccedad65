// Package rvm implements relevance vector regression: sparse Bayesian kernel
// regression whose posterior keeps only a small set of "relevant" bases.
package rvm

import (
	"fmt"
	"math"

	"github.com/patrikhermansson/mff/core"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// RVR is a relevance vector regressor. Each basis carries its own prior
// precision α; bases whose α grows beyond AlphaMax are pruned.
type RVR struct {
	MaxIter  int
	Tol      float64
	AlphaMax float64
	Bias     bool

	active []int // retained basis columns, ascending
	alpha  []float64
	beta   float64
	mu     *mat.VecDense
	sigma  *mat.SymDense
	bias   bool // whether the trailing weight is the bias
}

// New returns a regressor with the usual defaults.
func New() *RVR {
	return &RVR{MaxIter: 300, Tol: 1e-3, AlphaMax: 1e9, Bias: true}
}

// Fit runs the type-II maximum likelihood re-estimation of α and the noise
// precision β on the N×M design matrix K (typically a kernel matrix between
// training points and basis points) and targets t.
func (r *RVR) Fit(K mat.Matrix, t []float64) error {
	n, m := K.Dims()
	if n != len(t) || m == 0 {
		return fmt.Errorf("rvm fit on %d×%d design and %d targets: %w", n, m, len(t), core.ErrConfigurationShape)
	}
	cols := m
	if r.Bias {
		cols++
	}
	phi := mat.NewDense(n, cols, nil)
	phi.Copy(K)
	if r.Bias {
		for i := 0; i < n; i++ {
			phi.Set(i, m, 1)
		}
	}
	target := mat.NewVecDense(n, append([]float64(nil), t...))

	alpha := make([]float64, cols)
	for i := range alpha {
		alpha[i] = 1
	}
	beta := 1 / (stat.Variance(t, nil) + 1e-12)
	if n < 2 {
		beta = 1
	}
	active := make([]int, cols)
	for i := range active {
		active[i] = i
	}

	var (
		mu    *mat.VecDense
		sigma *mat.SymDense
	)
	for iter := 0; iter < r.MaxIter; iter++ {
		var err error
		mu, sigma, err = posterior(phi, target, active, alpha, beta)
		if err != nil {
			return err
		}

		var gammaSum, maxDelta float64
		next := active[:0:0]
		for a, c := range active {
			gamma := 1 - alpha[c]*sigma.At(a, a)
			gammaSum += gamma
			mu2 := mu.AtVec(a) * mu.AtVec(a)
			na := r.AlphaMax * 10
			if gamma > 0 && mu2 > 0 {
				na = gamma / mu2
			}
			if d := math.Abs(math.Log(na) - math.Log(alpha[c])); d > maxDelta {
				maxDelta = d
			}
			alpha[c] = na
			if na < r.AlphaMax {
				next = append(next, c)
			}
		}
		if !hasBasis(next, m) {
			// keep the kernel basis with the smallest precision
			best := -1
			for _, c := range active {
				if c < m && (best < 0 || alpha[c] < alpha[best]) {
					best = c
				}
			}
			next = insertSorted(next, best)
		}

		var resid mat.VecDense
		resid.MulVec(columns(phi, active), mu)
		resid.SubVec(target, &resid)
		rr := mat.Dot(&resid, &resid)
		if rr > 0 && float64(n)-gammaSum > 0 {
			beta = (float64(n) - gammaSum) / rr
		}

		pruned := len(next) != len(active)
		active = next
		if !pruned && maxDelta < r.Tol {
			log.Debug().Msgf("RVM converged after %d iterations with %d bases", iter+1, len(active))
			break
		}
	}

	mu, sigma, err := posterior(phi, target, active, alpha, beta)
	if err != nil {
		return err
	}
	r.alpha, r.beta, r.mu, r.sigma = alpha, beta, mu, sigma
	r.bias = r.Bias && active[len(active)-1] == m
	r.active = active
	if r.bias {
		r.active = active[:len(active)-1]
	}
	return nil
}

func hasBasis(active []int, m int) bool {
	for _, c := range active {
		if c < m {
			return true
		}
	}
	return false
}

func insertSorted(active []int, c int) []int {
	out := make([]int, 0, len(active)+1)
	for _, a := range active {
		if c >= 0 && a > c {
			out = append(out, c)
			c = -1
		}
		out = append(out, a)
	}
	if c >= 0 {
		out = append(out, c)
	}
	return out
}

func columns(phi *mat.Dense, active []int) *mat.Dense {
	n, _ := phi.Dims()
	out := mat.NewDense(n, len(active), nil)
	for a, c := range active {
		for i := 0; i < n; i++ {
			out.Set(i, a, phi.At(i, c))
		}
	}
	return out
}

// posterior returns the weight mean μ = β Σ Φᵀ t and covariance
// Σ = (diag α + β ΦᵀΦ)⁻¹ restricted to the active columns.
func posterior(phi *mat.Dense, t *mat.VecDense, active []int, alpha []float64, beta float64) (*mat.VecDense, *mat.SymDense, error) {
	pa := columns(phi, active)
	k := len(active)
	A := mat.NewSymDense(k, nil)
	A.SymOuterK(beta, pa.T())
	for a, c := range active {
		A.SetSym(a, a, A.At(a, a)+alpha[c])
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(A); !ok {
		return nil, nil, fmt.Errorf("rvm posterior over %d bases: %w", k, core.ErrSingularMatrix)
	}
	sigma := mat.NewSymDense(k, nil)
	if err := chol.InverseTo(sigma); err != nil {
		return nil, nil, fmt.Errorf("rvm posterior over %d bases: %v: %w", k, err, core.ErrSingularMatrix)
	}
	var pt mat.VecDense
	pt.MulVec(pa.T(), t)
	mu := mat.NewVecDense(k, nil)
	mu.MulVec(sigma, &pt)
	mu.ScaleVec(beta, mu)
	return mu, sigma, nil
}

// Active returns the retained basis columns of the design matrix, ascending.
func (r *RVR) Active() []int {
	return append([]int(nil), r.active...)
}

// Beta returns the estimated noise precision.
func (r *RVR) Beta() float64 { return r.beta }

// PredictDist returns the predictive mean and variance for the rows of Kstar,
// whose columns are the active bases in Active() order.
func (r *RVR) PredictDist(Kstar mat.Matrix) ([]float64, []float64, error) {
	if r.mu == nil {
		return nil, nil, core.ErrNotFitted
	}
	rows, c := Kstar.Dims()
	if c != len(r.active) {
		return nil, nil, fmt.Errorf("rvm predict with %d columns, %d active bases: %w", c, len(r.active), core.ErrConfigurationShape)
	}
	k := r.mu.Len()
	mean := make([]float64, rows)
	variance := make([]float64, rows)
	phi := mat.NewVecDense(k, nil)
	var sp mat.VecDense
	for i := 0; i < rows; i++ {
		for a := 0; a < c; a++ {
			phi.SetVec(a, Kstar.At(i, a))
		}
		if r.bias {
			phi.SetVec(k-1, 1)
		}
		mean[i] = mat.Dot(phi, r.mu)
		sp.MulVec(r.sigma, phi)
		variance[i] = 1/r.beta + mat.Dot(phi, &sp)
	}
	return mean, variance, nil
}
