package gram_test

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/patrikhermansson/mff/conf"
	"github.com/patrikhermansson/mff/core"
	"github.com/patrikhermansson/mff/gram"
	"github.com/patrikhermansson/mff/kernels"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gonum.org/v1/gonum/mat"
)

func randomSet(seed int64, n, neighbors int) []conf.Configuration {
	rng := rand.New(rand.NewSource(seed))
	out := make([]conf.Configuration, n)
	for i := range out {
		records := make([]conf.Record, neighbors)
		for j := range records {
			dir := core.Vec3{rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64()}
			p := dir.Scale((1 + 2*rng.Float64()) / dir.Norm())
			records[j] = conf.Record{p[0], p[1], p[2], 1, 1}
		}
		out[i] = conf.MustNew(records)
	}
	return out
}

type BuilderSuite struct {
	suite.Suite
	kernel kernels.Kernel
	X      []conf.Configuration
}

func (s *BuilderSuite) SetupSuite() {
	k, err := kernels.New(kernels.NewStore(), kernels.Key{Kind: kernels.TwoBody},
		kernels.Theta{Sigma: 0.5, Decay: 0.5, Cutoff: 4})
	s.Require().NoError(err)
	s.kernel = k
	s.X = randomSet(1, 9, 5)
}

func (s *BuilderSuite) TestEESymmetricAndMatchesKernel() {
	g, err := gram.NewBuilder(s.kernel, nil).EE(s.X)
	s.Require().NoError(err)
	n, _ := g.Dims()
	s.Equal(len(s.X), n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			s.Equal(g.At(i, j), g.At(j, i))
		}
		s.InDelta(s.kernel.EE(s.X[i], s.X[i]), g.At(i, i), 1e-12, "diagonal is the self kernel")
	}
	s.InDelta(s.kernel.EE(s.X[5], s.X[2]), g.At(5, 2), 1e-12)
}

func (s *BuilderSuite) TestFFBlockTranspose() {
	g, err := gram.NewBuilder(s.kernel, nil).FF(s.X)
	s.Require().NoError(err)
	n, _ := g.Dims()
	s.Equal(3*len(s.X), n)
	blk := s.kernel.FF(s.X[4], s.X[1])
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			s.InDelta(blk[r][c], g.At(3*4+r, 3*1+c), 1e-12)
			s.InDelta(blk[r][c], g.At(3*1+c, 3*4+r), 1e-12)
		}
	}
}

func (s *BuilderSuite) TestParallelMatchesSerial() {
	serial := gram.NewBuilder(s.kernel, gram.Serial{})
	ee, err := serial.EE(s.X)
	s.Require().NoError(err)
	ff, err := serial.FF(s.X)
	s.Require().NoError(err)
	for _, ncores := range []int{1, 2, 4} {
		b := gram.NewBuilder(s.kernel, gram.Goroutines{N: ncores})
		pee, err := b.EE(s.X)
		s.Require().NoError(err)
		s.True(mat.EqualApprox(ee, pee, 1e-12), "EE with %d cores", ncores)
		pff, err := b.FF(s.X)
		s.Require().NoError(err)
		s.True(mat.EqualApprox(ff, pff, 1e-12), "FF with %d cores", ncores)
	}
}

func (s *BuilderSuite) TestEFSumsGlobalEnvironments() {
	globals := [][]conf.Configuration{{s.X[0], s.X[1]}, {s.X[2]}}
	for _, pool := range []gram.Pool{gram.Serial{}, gram.Goroutines{N: 3}} {
		g, err := gram.NewBuilder(s.kernel, pool).EF(s.X, globals)
		s.Require().NoError(err)
		r, c := g.Dims()
		s.Equal(2, r)
		s.Equal(3*len(s.X), c)
		want := s.kernel.EF(s.X[0], s.X[3]).Add(s.kernel.EF(s.X[1], s.X[3]))
		for a := 0; a < 3; a++ {
			s.InDelta(want[a], g.At(0, 3*3+a), 1e-12)
		}
		want = s.kernel.EF(s.X[2], s.X[7])
		for a := 0; a < 3; a++ {
			s.InDelta(want[a], g.At(1, 3*7+a), 1e-12)
		}
	}
}

func (s *BuilderSuite) TestCrossMatchesSymmetric() {
	b := gram.NewBuilder(s.kernel, gram.Goroutines{N: 2})
	ee, err := b.EE(s.X)
	s.Require().NoError(err)
	cee, err := b.CrossEE(s.X, s.X)
	s.Require().NoError(err)
	s.True(mat.EqualApprox(ee, cee, 1e-12))

	ff, err := b.FF(s.X)
	s.Require().NoError(err)
	cff, err := b.CrossFF(s.X, s.X)
	s.Require().NoError(err)
	s.True(mat.EqualApprox(ff, cff, 1e-10))

	cef, err := b.CrossEF(s.X[:2], s.X[3:5])
	s.Require().NoError(err)
	r, c := cef.Dims()
	s.Equal(2, r)
	s.Equal(6, c)
	v := s.kernel.EF(s.X[1], s.X[4])
	for a := 0; a < 3; a++ {
		s.InDelta(v[a], cef.At(1, 3+a), 1e-12)
	}
}

func (s *BuilderSuite) TestGradientNotImplemented() {
	b := gram.NewBuilder(s.kernel, gram.Goroutines{N: 2})
	b.EvalGradient = true
	_, err := b.EE(s.X)
	s.True(errors.Is(err, core.ErrNotImplementedGradient))
	_, err = b.FF(s.X)
	s.True(errors.Is(err, core.ErrNotImplementedGradient))
	_, err = b.EF(s.X, [][]conf.Configuration{s.X})
	s.True(errors.Is(err, core.ErrNotImplementedGradient))
}

func (s *BuilderSuite) TestEmptySet() {
	_, err := gram.NewBuilder(s.kernel, nil).EE(nil)
	s.True(errors.Is(err, core.ErrInsufficientData))
}

func TestBuilderSuite(t *testing.T) {
	suite.Run(t, new(BuilderSuite))
}

// faultyKernel panics on the self-correlation of one configuration.
type faultyKernel struct {
	kernels.Kernel
	bad conf.Configuration
}

func (f faultyKernel) EE(a, b conf.Configuration) float64 {
	if a.Distance(0) == f.bad.Distance(0) && b.Distance(0) == f.bad.Distance(0) {
		panic("numeric failure")
	}
	return f.Kernel.EE(a, b)
}

func TestWorkerFailureFailsBuild(t *testing.T) {
	X := randomSet(3, 12, 3)
	k, err := kernels.New(kernels.NewStore(), kernels.Key{Kind: kernels.TwoBody},
		kernels.Theta{Sigma: 0.5, Decay: 0.5, Cutoff: 4})
	require.NoError(t, err)
	faulty := faultyKernel{Kernel: k, bad: X[10]}
	for _, pool := range []gram.Pool{nil, gram.Serial{}, gram.Goroutines{N: 4}} {
		g, err := gram.NewBuilder(faulty, pool).EE(X)
		require.Error(t, err)
		require.True(t, errors.Is(err, gram.ErrWorkerFailed))
		require.Nil(t, g)
	}
}

func TestPoolPropagatesJobError(t *testing.T) {
	boom := errors.New("boom")
	chunks := gram.Partition(10, 3)
	job := func(c gram.Chunk) ([]float64, error) {
		if c.Start == 4 {
			return nil, boom
		}
		return make([]float64, c.Len()), nil
	}
	for _, pool := range []gram.Pool{gram.Serial{}, gram.Goroutines{N: 3}} {
		_, err := pool.Map(chunks, job)
		require.True(t, errors.Is(err, boom))
	}
}

func TestPoolKeepsChunkOrder(t *testing.T) {
	chunks := gram.Partition(100, 7)
	parts, err := gram.Goroutines{N: 7}.Map(chunks, func(c gram.Chunk) ([]float64, error) {
		return []float64{float64(c.Start)}, nil
	})
	require.NoError(t, err)
	for p, c := range chunks {
		require.Equal(t, float64(c.Start), parts[p][0])
	}
}

func TestNewPool(t *testing.T) {
	p, err := gram.NewPool("serial", 4)
	require.NoError(t, err)
	require.Equal(t, 1, p.Workers())

	p, err = gram.NewPool("Goroutine", 4)
	require.NoError(t, err)
	require.Equal(t, 4, p.Workers())

	_, err = gram.NewPool("ray", 4)
	require.True(t, errors.Is(err, core.ErrUnsupportedMethod))

	require.Greater(t, gram.Goroutines{}.Workers(), 0)
}
