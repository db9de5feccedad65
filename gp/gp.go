// Package gp implements Gaussian process regression of energies and forces
// over atomic configurations.
package gp

import (
	"fmt"
	"math"

	"github.com/patrikhermansson/mff/conf"
	"github.com/patrikhermansson/mff/core"
	"github.com/patrikhermansson/mff/gram"
	"github.com/patrikhermansson/mff/kernels"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"
)

// Regressor is the model contract consumed by the sampling strategies.
type Regressor interface {
	FitEnergy(X []conf.Configuration, Y []float64) error
	Fit(X []conf.Configuration, F []core.Vec3) error
	UpdateEnergy(x conf.Configuration, y float64) error
	UpdateForce(x conf.Configuration, f core.Vec3) error
	PredictEnergy(X []conf.Configuration, returnStd bool) ([]float64, []float64, error)
	Predict(X []conf.Configuration, returnStd bool) ([]core.Vec3, []core.Vec3, error)
}

// Labels records what a fitted model was trained on.
type Labels int

const (
	Unfitted Labels = iota
	Energies
	Forces
)

// GaussianProcess is a GP regressor with a fixed kernel and noise level.
// It is not safe for concurrent use.
type GaussianProcess struct {
	kernel  kernels.Kernel
	noise   float64
	builder *gram.Builder

	labels    Labels
	neighbors int // neighbor count shared by every training configuration
	X         []conf.Configuration
	y      []float64 // N energies or 3N force components
	chol   *mat.Cholesky
	alpha  *mat.VecDense
}

var _ Regressor = (*GaussianProcess)(nil)

// Option configures a GaussianProcess.
type Option func(*GaussianProcess)

// WithPool sets the worker pool used to build Gram matrices.
func WithPool(p gram.Pool) Option {
	return func(g *GaussianProcess) { g.builder.Pool = p }
}

// New returns an unfitted GP over kernel with observation noise noise.
func New(kernel kernels.Kernel, noise float64, opts ...Option) *GaussianProcess {
	g := &GaussianProcess{
		kernel:  kernel,
		noise:   noise,
		builder: gram.NewBuilder(kernel, nil),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Kernel returns the covariance kernel.
func (g *GaussianProcess) Kernel() kernels.Kernel { return g.kernel }

// Labels reports what the model was last fitted on.
func (g *GaussianProcess) Labels() Labels { return g.labels }

// Len returns the number of training configurations.
func (g *GaussianProcess) Len() int { return len(g.X) }

// FitEnergy fits the model on energies Y of configurations X.
func (g *GaussianProcess) FitEnergy(X []conf.Configuration, Y []float64) error {
	if len(X) != len(Y) {
		return fmt.Errorf("fit on %d configurations and %d energies: %w", len(X), len(Y), core.ErrConfigurationShape)
	}
	if err := checkNeighbors(X, fitNeighbors(X)); err != nil {
		return err
	}
	K, err := g.builder.EE(X)
	if err != nil {
		return err
	}
	return g.solve(K, X, append([]float64(nil), Y...), Energies)
}

// Fit fits the model on forces F of configurations X.
func (g *GaussianProcess) Fit(X []conf.Configuration, F []core.Vec3) error {
	if len(X) != len(F) {
		return fmt.Errorf("fit on %d configurations and %d forces: %w", len(X), len(F), core.ErrConfigurationShape)
	}
	if err := checkNeighbors(X, fitNeighbors(X)); err != nil {
		return err
	}
	K, err := g.builder.FF(X)
	if err != nil {
		return err
	}
	return g.solve(K, X, flatten(F), Forces)
}

func (g *GaussianProcess) solve(K *mat.SymDense, X []conf.Configuration, y []float64, labels Labels) error {
	n := K.SymmetricDim()
	noise2 := g.noise * g.noise
	for i := 0; i < n; i++ {
		K.SetSym(i, i, K.At(i, i)+noise2)
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(K); !ok {
		return fmt.Errorf("factorize %d×%d gram: %w", n, n, core.ErrSingularMatrix)
	}
	alpha, err := solveVec(&chol, y)
	if err != nil {
		return err
	}
	g.labels, g.X, g.y, g.chol, g.alpha = labels, append([]conf.Configuration(nil), X...), y, &chol, alpha
	g.neighbors = fitNeighbors(X)
	log.Debug().Msgf("Fitted %s GP on %d configurations", g.kernel.Name(), len(X))
	return nil
}

func fitNeighbors(X []conf.Configuration) int {
	if len(X) == 0 {
		return 0
	}
	return X[0].Len()
}

// checkNeighbors rejects any configuration of X without exactly want neighbors.
func checkNeighbors(X []conf.Configuration, want int) error {
	for i, x := range X {
		if x.Len() != want {
			return &conf.ShapeError{Index: i, Expected: want, Got: x.Len(), Reason: "neighbor count differs from the model"}
		}
	}
	return nil
}

func solveVec(chol *mat.Cholesky, y []float64) (*mat.VecDense, error) {
	alpha := mat.NewVecDense(len(y), nil)
	if err := chol.SolveVecTo(alpha, mat.NewVecDense(len(y), y)); err != nil {
		return nil, fmt.Errorf("solve regularized system: %v: %w", err, core.ErrSingularMatrix)
	}
	return alpha, nil
}

// UpdateEnergy extends an energy-fitted model by one configuration. The Cholesky
// factor is extended by the new row and column instead of being recomputed.
// On an unfitted model it fits on the single point.
func (g *GaussianProcess) UpdateEnergy(x conf.Configuration, y float64) error {
	if g.labels == Unfitted {
		return g.FitEnergy([]conf.Configuration{x}, []float64{y})
	}
	if g.labels != Energies {
		return fmt.Errorf("energy update of a force-fitted model: %w", core.ErrUnsupportedMethod)
	}
	if err := checkNeighbors([]conf.Configuration{x}, g.neighbors); err != nil {
		return err
	}
	col, err := g.builder.CrossEE(g.X, []conf.Configuration{x})
	if err != nil {
		return err
	}
	n := len(g.X)
	v := mat.NewVecDense(n+1, nil)
	for i := 0; i < n; i++ {
		v.SetVec(i, col.At(i, 0))
	}
	v.SetVec(n, g.kernel.EE(x, x)+g.noise*g.noise)
	next := new(mat.Cholesky)
	if ok := next.ExtendVecSym(g.chol, v); !ok {
		return fmt.Errorf("extend gram to %d points: %w", n+1, core.ErrSingularMatrix)
	}
	return g.commit(next, x, y)
}

// UpdateForce extends a force-fitted model by one configuration, adding its
// three force components one at a time.
func (g *GaussianProcess) UpdateForce(x conf.Configuration, f core.Vec3) error {
	if g.labels == Unfitted {
		return g.Fit([]conf.Configuration{x}, []core.Vec3{f})
	}
	if g.labels != Forces {
		return fmt.Errorf("force update of an energy-fitted model: %w", core.ErrUnsupportedMethod)
	}
	if err := checkNeighbors([]conf.Configuration{x}, g.neighbors); err != nil {
		return err
	}
	cross, err := g.builder.CrossFF(g.X, []conf.Configuration{x})
	if err != nil {
		return err
	}
	self := g.kernel.FF(x, x)
	m := 3 * len(g.X)
	chol := g.chol
	for c := 0; c < 3; c++ {
		v := mat.NewVecDense(m+c+1, nil)
		for i := 0; i < m; i++ {
			v.SetVec(i, cross.At(i, c))
		}
		for p := 0; p < c; p++ {
			v.SetVec(m+p, self[p][c])
		}
		v.SetVec(m+c, self[c][c]+g.noise*g.noise)
		next := new(mat.Cholesky)
		if ok := next.ExtendVecSym(chol, v); !ok {
			return fmt.Errorf("extend gram to %d components: %w", m+c+1, core.ErrSingularMatrix)
		}
		chol = next
	}
	return g.commit(chol, x, f[:]...)
}

func (g *GaussianProcess) commit(chol *mat.Cholesky, x conf.Configuration, y ...float64) error {
	ys := append(append([]float64(nil), g.y...), y...)
	alpha, err := solveVec(chol, ys)
	if err != nil {
		return err
	}
	g.X = append(g.X, x)
	g.y, g.chol, g.alpha = ys, chol, alpha
	return nil
}

// PredictEnergy returns the posterior mean energy of each configuration in X and,
// when returnStd is set, its posterior standard deviation. A force-fitted model
// predicts energies through the energy-force correlation.
func (g *GaussianProcess) PredictEnergy(X []conf.Configuration, returnStd bool) ([]float64, []float64, error) {
	if g.labels == Unfitted {
		return nil, nil, core.ErrNotFitted
	}
	if err := checkNeighbors(X, g.neighbors); err != nil {
		return nil, nil, err
	}
	var (
		Ks  *mat.Dense
		err error
	)
	if g.labels == Energies {
		Ks, err = g.builder.CrossEE(X, g.X)
	} else {
		Ks, err = g.builder.CrossEF(X, g.X)
	}
	if err != nil {
		return nil, nil, err
	}
	mean := mat.NewVecDense(len(X), nil)
	mean.MulVec(Ks, g.alpha)
	if !returnStd {
		return mean.RawVector().Data, nil, nil
	}
	prior := make([]float64, len(X))
	for i, x := range X {
		prior[i] = g.kernel.EE(x, x)
	}
	std, err := g.std(Ks, prior)
	if err != nil {
		return nil, nil, err
	}
	return mean.RawVector().Data, std, nil
}

// Predict returns the posterior mean force on each configuration in X and, when
// returnStd is set, the per-component posterior standard deviation. An
// energy-fitted model predicts forces through the energy-force correlation.
func (g *GaussianProcess) Predict(X []conf.Configuration, returnStd bool) ([]core.Vec3, []core.Vec3, error) {
	if g.labels == Unfitted {
		return nil, nil, core.ErrNotFitted
	}
	if err := checkNeighbors(X, g.neighbors); err != nil {
		return nil, nil, err
	}
	var Ks mat.Matrix
	if g.labels == Forces {
		ff, err := g.builder.CrossFF(X, g.X)
		if err != nil {
			return nil, nil, err
		}
		Ks = ff
	} else {
		// cov(F*, E_i) = EF(X_i, x*)
		ef, err := g.builder.CrossEF(g.X, X)
		if err != nil {
			return nil, nil, err
		}
		Ks = ef.T()
	}
	mean := mat.NewVecDense(3*len(X), nil)
	mean.MulVec(Ks, g.alpha)
	F := unflatten(mean.RawVector().Data)
	if !returnStd {
		return F, nil, nil
	}
	prior := make([]float64, 3*len(X))
	for i, x := range X {
		d := g.kernel.FF(x, x).Diag()
		copy(prior[3*i:3*i+3], d[:])
	}
	std, err := g.std(Ks, prior)
	if err != nil {
		return nil, nil, err
	}
	return F, unflatten(std), nil
}

// std returns sqrt(prior_p - k_p' K^-1 k_p) for every row k_p of Ks.
func (g *GaussianProcess) std(Ks mat.Matrix, prior []float64) ([]float64, error) {
	var V mat.Dense
	if err := g.chol.SolveTo(&V, Ks.T()); err != nil {
		return nil, fmt.Errorf("posterior variance: %v: %w", err, core.ErrSingularMatrix)
	}
	rows, n := Ks.Dims()
	std := make([]float64, rows)
	for p := 0; p < rows; p++ {
		var q float64
		for i := 0; i < n; i++ {
			q += Ks.At(p, i) * V.At(i, p)
		}
		std[p] = math.Sqrt(math.Max(prior[p]-q, 0))
	}
	return std, nil
}

// LogMarginalLikelihood returns log p(y | X) of the fitted model.
func (g *GaussianProcess) LogMarginalLikelihood() (float64, error) {
	if g.labels == Unfitted {
		return 0, core.ErrNotFitted
	}
	n := float64(len(g.y))
	fit := mat.Dot(mat.NewVecDense(len(g.y), g.y), g.alpha)
	return -0.5*fit - 0.5*g.chol.LogDet() - 0.5*n*math.Log(2*math.Pi), nil
}

func flatten(F []core.Vec3) []float64 {
	out := make([]float64, 0, 3*len(F))
	for _, f := range F {
		out = append(out, f[:]...)
	}
	return out
}

func unflatten(v []float64) []core.Vec3 {
	out := make([]core.Vec3, len(v)/3)
	for i := range out {
		copy(out[i][:], v[3*i:3*i+3])
	}
	return out
}
