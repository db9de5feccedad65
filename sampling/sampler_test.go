package sampling_test

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/patrikhermansson/mff/conf"
	"github.com/patrikhermansson/mff/core"
	"github.com/patrikhermansson/mff/gram"
	"github.com/patrikhermansson/mff/sampling"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// pairDataset builds n local environments of a soft pair potential with
// neighbors atoms in a shell around the central atom.
func pairDataset(t *testing.T, n, neighbors int) conf.Dataset {
	t.Helper()
	rng := rand.New(rand.NewSource(3))
	confs := make([]conf.Configuration, n)
	energies := make([]float64, n)
	forces := make([]core.Vec3, n)
	for i := 0; i < n; i++ {
		records := make([]conf.Record, neighbors)
		var e float64
		var f core.Vec3
		for j := range records {
			r := 1 + 2*rng.Float64()
			p := core.Vec3{rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64()}
			p = p.Scale(r / p.Norm())
			records[j] = conf.Record{p[0], p[1], p[2], 1, 1}
			w := math.Exp(-r)
			e += w
			f = f.Sub(p.Scale(w / r))
		}
		confs[i] = conf.MustNew(records)
		energies[i] = e + 0.01*rng.NormFloat64()
		forces[i] = f
	}
	ds, err := conf.NewDataset(confs, energies, forces)
	require.NoError(t, err)
	return ds
}

func testSettings() core.Settings {
	s := core.DefaultSettings()
	s.Sigma2B = 0.5
	s.Sigma3B = 0.5
	s.SigmaMB = 0.5
	s.Noise = 0.01
	s.RCut = 5.0
	return s
}

type SamplerSuite struct {
	suite.Suite
	ds conf.Dataset
}

func (s *SamplerSuite) SetupSuite() {
	s.ds = pairDataset(s.T(), 50, 8)
}

func (s *SamplerSuite) sampler(seed int64) *sampling.Sampler {
	smp, err := sampling.New(s.ds, sampling.Options{NTest: 5, Seed: seed, Settings: testSettings()})
	s.Require().NoError(err)
	return smp
}

func (s *SamplerSuite) requireResult(res sampling.Result, poolSize int) {
	for _, v := range []float64{res.MAE, res.SMAE, res.RMSE} {
		s.False(math.IsNaN(v) || math.IsInf(v, 0))
		s.GreaterOrEqual(v, 0.0)
	}
	seen := make(map[int]bool, len(res.Index))
	for _, i := range res.Index {
		s.GreaterOrEqual(i, 0)
		s.Less(i, poolSize)
		s.False(seen[i], "index %d repeated", i)
		seen[i] = true
	}
	s.Positive(res.Elapsed)
}

func (s *SamplerSuite) TestSplitSizes() {
	smp := s.sampler(1)
	s.Equal(45, smp.Pool().Len())
	s.Equal(5, smp.Test().Len())
	var sum float64
	for _, e := range smp.Pool().Energies {
		sum += e
	}
	for _, e := range smp.Test().Energies {
		sum += e
	}
	s.InDelta(0, sum, 1e-9)
}

func (s *SamplerSuite) TestRandomEndToEnd() {
	smp := s.sampler(1)
	res, err := smp.Run(sampling.Request{Strategy: "random", Method: "2b", NTrain: 10})
	s.Require().NoError(err)
	s.Len(res.Index, 10)
	s.requireResult(res, smp.Pool().Len())
}

func (s *SamplerSuite) TestRandomReproducible() {
	a, err := s.sampler(11).Random("2b", 5, sampling.EnergyMetric)
	s.Require().NoError(err)
	b, err := s.sampler(11).Random("2b", 5, sampling.EnergyMetric)
	s.Require().NoError(err)
	s.Equal(a.Index, b.Index)
	s.InDelta(a.MAE, b.MAE, 1e-12)
}

func (s *SamplerSuite) TestRandomForces() {
	smp := s.sampler(2)
	res, err := smp.Random("2b", 6, sampling.ForceMetric)
	s.Require().NoError(err)
	s.requireResult(res, smp.Pool().Len())
}

func (s *SamplerSuite) TestIVMEnergy() {
	smp := s.sampler(3)
	for _, usePredError := range []bool{false, true} {
		res, err := smp.IVMEnergy("2b", 8, 5, usePredError)
		s.Require().NoError(err)
		s.Len(res.Index, 8)
		s.IsIncreasing(res.Index)
		s.requireResult(res, smp.Pool().Len())
	}
}

func (s *SamplerSuite) TestIVMExhaustsSmallPool() {
	ds := pairDataset(s.T(), 12, 4)
	smp, err := sampling.New(ds, sampling.Options{NTest: 2, Seed: 4, Settings: testSettings()})
	s.Require().NoError(err)
	res, err := smp.IVMEnergy("2b", 100, 3, false)
	s.Require().NoError(err)
	s.Len(res.Index, 10)
}

func (s *SamplerSuite) TestIVMForce() {
	smp := s.sampler(5)
	res, err := smp.IVMForce("2b", 5, 4, true, sampling.ForceMetric)
	s.Require().NoError(err)
	s.Len(res.Index, 5)
	s.requireResult(res, smp.Pool().Len())
}

func (s *SamplerSuite) TestGrid() {
	smp := s.sampler(6)
	res, err := smp.Grid("2b", 10, sampling.EnergyMetric)
	s.Require().NoError(err)
	s.NotEmpty(res.Index)
	s.IsIncreasing(res.Index)
	s.requireResult(res, smp.Pool().Len())
}

func (s *SamplerSuite) TestCUR() {
	smp := s.sampler(7)
	res, err := smp.CUR("2b", 6, 15)
	s.Require().NoError(err)
	s.NotEmpty(res.Index)
	s.LessOrEqual(len(res.Index), 6)
	s.requireResult(res, smp.Pool().Len())
}

func (s *SamplerSuite) TestRVM() {
	smp := s.sampler(8)
	res, err := smp.RVM("2b", 15)
	s.Require().NoError(err)
	s.NotEmpty(res.Index)
	s.IsIncreasing(res.Index)
	s.requireResult(res, smp.Pool().Len())
}

func (s *SamplerSuite) TestTestForces() {
	smp := s.sampler(9)
	e, err := smp.TestForces([]int{0, 3, 7, 11}, "2b")
	s.Require().NoError(err)
	s.GreaterOrEqual(e.MAE, 0.0)
	s.False(math.IsNaN(e.RMSE))

	_, err = smp.TestForces([]int{0, 99}, "2b")
	s.True(errors.Is(err, core.ErrInvalidParameter))
	_, err = smp.TestForces(nil, "2b")
	s.True(errors.Is(err, core.ErrInsufficientData))
}

func (s *SamplerSuite) TestParallelPoolMatchesSerial() {
	serial, err := sampling.New(s.ds, sampling.Options{NTest: 5, Seed: 10, Settings: testSettings()})
	s.Require().NoError(err)
	parallel, err := sampling.New(s.ds, sampling.Options{NTest: 5, Seed: 10, Settings: testSettings(), Pool: gram.Goroutines{N: 4}})
	s.Require().NoError(err)

	a, err := serial.Random("2b", 8, sampling.EnergyMetric)
	s.Require().NoError(err)
	b, err := parallel.Random("2b", 8, sampling.EnergyMetric)
	s.Require().NoError(err)
	s.Equal(a.Index, b.Index)
	s.InDelta(a.MAE, b.MAE, 1e-9)
}

func TestSamplerSuite(t *testing.T) {
	suite.Run(t, new(SamplerSuite))
}

func TestRunRejectsBadRequests(t *testing.T) {
	smp, err := sampling.New(pairDataset(t, 20, 4), sampling.Options{NTest: 4, Seed: 1, Settings: testSettings()})
	require.NoError(t, err)

	tests := []struct {
		name string
		req  sampling.Request
		want error
	}{
		{"unknown strategy", sampling.Request{Strategy: "kmeans", Method: "2b"}, core.ErrUnsupportedMethod},
		{"unknown method", sampling.Request{Strategy: "random", Method: "4b", NTrain: 3}, core.ErrUnsupportedKernel},
		{"mb grid", sampling.Request{Strategy: "grid", Method: "mb", NBins: 5}, core.ErrUnsupportedKernel},
		{"normalized random", sampling.Request{Strategy: "random", Method: "normalized_3b", NTrain: 3}, core.ErrUnsupportedKernel},
		{"unknown metric", sampling.Request{Strategy: "random", Method: "2b", NTrain: 3, Metric: "stress"}, core.ErrUnsupportedMethod},
		{"too many points", sampling.Request{Strategy: "random", Method: "2b", NTrain: 17}, core.ErrInsufficientData},
		{"ivm single point", sampling.Request{Strategy: "ivm_e", Method: "2b", NTrain: 1, BatchSize: 2}, core.ErrInvalidParameter},
		{"ivm zero batch", sampling.Request{Strategy: "ivm_f", Method: "2b", NTrain: 4}, core.ErrInvalidParameter},
		{"grid zero bins", sampling.Request{Strategy: "grid", Method: "2b"}, core.ErrInvalidParameter},
		{"cur zero batch", sampling.Request{Strategy: "cur", Method: "2b", NTrain: 3}, core.ErrInvalidParameter},
		{"rvm zero batch", sampling.Request{Strategy: "rvm", Method: "mb"}, core.ErrInvalidParameter},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := smp.Run(tc.req)
			require.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestRandomTinyPool(t *testing.T) {
	smp, err := sampling.New(pairDataset(t, 6, 4), sampling.Options{NTest: 2, Seed: 1, Settings: testSettings()})
	require.NoError(t, err)
	_, err = smp.Random("2b", 10, sampling.EnergyMetric)
	require.True(t, errors.Is(err, core.ErrInsufficientData))
}

func TestIVMNeedsTwoPoolPoints(t *testing.T) {
	smp, err := sampling.New(pairDataset(t, 3, 4), sampling.Options{NTest: 2, Seed: 1, Settings: testSettings()})
	require.NoError(t, err)
	_, err = smp.IVMEnergy("2b", 4, 2, false)
	require.True(t, errors.Is(err, core.ErrInsufficientData))
}

func TestParseMetric(t *testing.T) {
	m, err := sampling.ParseMetric("")
	require.NoError(t, err)
	require.Equal(t, sampling.EnergyMetric, m)
	m, err = sampling.ParseMetric(" Force ")
	require.NoError(t, err)
	require.Equal(t, sampling.ForceMetric, m)
	require.ElementsMatch(t, []string{"random", "ivm_e", "ivm_f", "grid", "cur", "rvm"}, sampling.Strategies())
}

func TestNewRejectsBadSettings(t *testing.T) {
	s := testSettings()
	s.RCut = -1
	_, err := sampling.New(pairDataset(t, 10, 4), sampling.Options{NTest: 2, Settings: s})
	require.Error(t, err)
}
