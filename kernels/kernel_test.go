package kernels_test

import (
	"errors"
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/patrikhermansson/mff/conf"
	"github.com/patrikhermansson/mff/core"
	"github.com/patrikhermansson/mff/kernels"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

var theta = kernels.Theta{Sigma: 0.8, Decay: 0.5, Cutoff: 4.5}

// randomConf places n neighbors at distances in [1, 3) with species drawn from species.
func randomConf(rng *rand.Rand, n int, central float64, species []float64) conf.Configuration {
	records := make([]conf.Record, n)
	for i := range records {
		dir := core.Vec3{rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64()}
		p := dir.Scale((1 + 2*rng.Float64()) / dir.Norm())
		records[i] = conf.Record{p[0], p[1], p[2], central, species[rng.Intn(len(species))]}
	}
	return conf.MustNew(records)
}

func closeTo(t *testing.T, want, got float64, what string) {
	t.Helper()
	tol := 1e-4 * math.Max(1, math.Abs(want))
	if math.Abs(want-got) > tol {
		t.Errorf("%s: expected %.8g, got %.8g", what, want, got)
	}
}

func allKeys() []kernels.Key {
	var keys []kernels.Key
	for _, kind := range []kernels.Kind{kernels.TwoBody, kernels.ThreeBody, kernels.ManyBody, kernels.Overlap} {
		for _, sp := range []kernels.Species{kernels.SingleSpecies, kernels.TwoSpecies} {
			keys = append(keys, kernels.Key{Kind: kind, Species: sp})
		}
	}
	return keys
}

func fixtures(key kernels.Key) (conf.Configuration, conf.Configuration) {
	rng := rand.New(rand.NewSource(42))
	if key.Species == kernels.TwoSpecies {
		return randomConf(rng, 4, 1, []float64{1, 2}), randomConf(rng, 4, 1, []float64{1, 2})
	}
	return randomConf(rng, 4, 1, []float64{1}), randomConf(rng, 4, 1, []float64{1})
}

func TestDerivativesMatchFiniteDifferences(t *testing.T) {
	store := kernels.NewStore()
	const h = 1e-3
	for _, key := range allKeys() {
		t.Run(key.String(), func(t *testing.T) {
			k, err := kernels.New(store, key, theta)
			require.NoError(t, err)
			a, b := fixtures(key)

			ef := k.EF(a, b)
			for c := 0; c < 3; c++ {
				// moving the central atom of b by +h shifts its neighbors by -h
				num := (k.EE(a, b.Shift(c, -h)) - k.EE(a, b.Shift(c, h))) / (2 * h)
				closeTo(t, -num, ef[c], "EF")
			}

			ff := k.FF(a, b)
			for i := 0; i < 3; i++ {
				for j := 0; j < 3; j++ {
					kk := func(s1, s2 float64) float64 {
						return k.EE(a.Shift(i, -s1*h), b.Shift(j, -s2*h))
					}
					num := (kk(1, 1) - kk(1, -1) - kk(-1, 1) + kk(-1, -1)) / (4 * h * h)
					closeTo(t, num, ff[i][j], "FF")
				}
			}
		})
	}
}

func TestKernelSymmetry(t *testing.T) {
	store := kernels.NewStore()
	for _, key := range allKeys() {
		t.Run(key.String(), func(t *testing.T) {
			k, err := kernels.New(store, key, theta)
			require.NoError(t, err)
			a, b := fixtures(key)

			closeTo(t, k.EE(a, b), k.EE(b, a), "EE")
			ab, ba := k.FF(a, b), k.FF(b, a).T()
			for i := 0; i < 3; i++ {
				for j := 0; j < 3; j++ {
					closeTo(t, ab[i][j], ba[i][j], "FF")
				}
			}
		})
	}
}

func TestCutoffZeroesDistantNeighbors(t *testing.T) {
	k, err := kernels.New(kernels.NewStore(), kernels.Key{Kind: kernels.TwoBody}, theta)
	require.NoError(t, err)
	far := conf.MustNew([]conf.Record{{5, 0, 0, 1, 1}})
	near := conf.MustNew([]conf.Record{{1, 0, 0, 1, 1}})
	require.Equal(t, 0.0, k.EE(far, near))
	require.Equal(t, core.Vec3{}, k.EF(far, near))
	require.Greater(t, k.EE(near, near), 0.0)
}

func TestTwoSpeciesMask(t *testing.T) {
	k, err := kernels.New(kernels.NewStore(), kernels.Key{Kind: kernels.TwoBody, Species: kernels.TwoSpecies}, theta)
	require.NoError(t, err)
	a := conf.MustNew([]conf.Record{{1, 0, 0, 1, 1}})
	b := conf.MustNew([]conf.Record{{1, 0, 0, 2, 2}})
	c := conf.MustNew([]conf.Record{{1, 0, 0, 2, 1}})
	// an A-A pair never correlates with a B-B pair
	require.Equal(t, 0.0, k.EE(a, b))
	// A-B and B-A pairs match through the swapped permutation
	require.Greater(t, k.EE(c, conf.MustNew([]conf.Record{{1, 0, 0, 1, 2}})), 0.0)
}

func TestSumIsAdditive(t *testing.T) {
	store := kernels.NewStore()
	k2, err := kernels.New(store, kernels.Key{Kind: kernels.TwoBody}, theta)
	require.NoError(t, err)
	k3, err := kernels.New(store, kernels.Key{Kind: kernels.ThreeBody}, theta)
	require.NoError(t, err)
	a, b := fixtures(kernels.Key{})

	s := kernels.Sum(k2, k3)
	closeTo(t, k2.EE(a, b)+k3.EE(a, b), s.EE(a, b), "EE")
	ef := k2.EF(a, b).Add(k3.EF(a, b))
	for c := 0; c < 3; c++ {
		closeTo(t, ef[c], s.EF(a, b)[c], "EF")
	}
	require.Equal(t, "2b/single-species+3b/single-species", s.Name())
	require.Same(t, k2, kernels.Sum(k2))
}

func TestStoreCompilesOnce(t *testing.T) {
	store := kernels.NewStore()
	key := kernels.Key{Kind: kernels.ThreeBody, Species: kernels.TwoSpecies}
	var wg sync.WaitGroup
	results := make([]*kernels.Compiled, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := store.Load(key)
			if err != nil {
				t.Errorf("Load failed: %v", err)
			}
			results[i] = c
		}(i)
	}
	wg.Wait()
	for _, c := range results {
		require.Same(t, results[0], c)
	}
	require.Equal(t, 1, store.Len())
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want kernels.Kind
	}{
		{"2b", kernels.TwoBody},
		{"3B", kernels.ThreeBody},
		{" mb ", kernels.ManyBody},
		{"overlap", kernels.Overlap},
	}
	for _, tt := range tests {
		got, err := kernels.ParseKind(tt.in)
		require.NoError(t, err)
		require.Equal(t, tt.want, got)
	}
	_, err := kernels.ParseKind("4b")
	require.True(t, errors.Is(err, core.ErrUnsupportedKernel))

	_, err = kernels.Compile(kernels.Key{Kind: kernels.Kind(9)})
	require.True(t, errors.Is(err, core.ErrUnsupportedKernel))
}

func TestNewRejectsBadTheta(t *testing.T) {
	_, err := kernels.New(kernels.NewStore(), kernels.Key{}, kernels.Theta{Sigma: 0, Decay: 1, Cutoff: 1})
	require.True(t, errors.Is(err, core.ErrInvalidParameter))
}

func TestNormalizedSquared(t *testing.T) {
	g := mat.NewDense(2, 2, []float64{4, 2, 2, 1})
	out := kernels.NormalizedSquared(g, []float64{4, 1}, []float64{4, 1})
	require.InDelta(t, 1.0, out.At(0, 0), 1e-12)
	require.InDelta(t, 1.0, out.At(1, 1), 1e-12)
	require.InDelta(t, 1.0, out.At(0, 1), 1e-12)
}

func TestSpeciesFor(t *testing.T) {
	require.Equal(t, kernels.SingleSpecies, kernels.SpeciesFor([]float64{1}))
	require.Equal(t, kernels.TwoSpecies, kernels.SpeciesFor([]float64{1, 2}))
}
