package sampling

import (
	"fmt"
	"math/rand"
	"slices"
	"sort"
	"time"

	"github.com/patrikhermansson/mff/core"
	"github.com/patrikhermansson/mff/kernels"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"
)

// curFactors is a randomized CUR decomposition A ≈ C U R, where C holds sampled
// columns of A and R sampled rows.
type curFactors struct {
	cid, rid   []int // sampled column and row indices, with repetition, ascending
	C, U, R    *mat.Dense
	rowp, colp []float64
}

// factorizeCUR samples rank columns and rank rows of A with replacement, with
// probabilities proportional to their squared norms, and solves
// U = pinv(C) A pinv(R).
func factorizeCUR(A mat.Matrix, rank int, rng *rand.Rand) (*curFactors, error) {
	r, c := A.Dims()
	rowp := make([]float64, r)
	colp := make([]float64, c)
	var total float64
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := A.At(i, j) * A.At(i, j)
			rowp[i] += v
			colp[j] += v
			total += v
		}
	}
	if total == 0 {
		return nil, fmt.Errorf("cur of a zero matrix: %w", core.ErrSingularMatrix)
	}
	for i := range rowp {
		rowp[i] /= total
	}
	for j := range colp {
		colp[j] /= total
	}
	f := &curFactors{
		rid:  sampleIndices(rank, rowp, rng),
		cid:  sampleIndices(rank, colp, rng),
		rowp: rowp,
		colp: colp,
	}

	f.C = mat.NewDense(r, len(f.cid), nil)
	for k, j := range f.cid {
		for i := 0; i < r; i++ {
			f.C.Set(i, k, A.At(i, j))
		}
	}
	f.R = mat.NewDense(len(f.rid), c, nil)
	for k, i := range f.rid {
		for j := 0; j < c; j++ {
			f.R.Set(k, j, A.At(i, j))
		}
	}
	pc, err := pinv(f.C)
	if err != nil {
		return nil, err
	}
	pr, err := pinv(f.R)
	if err != nil {
		return nil, err
	}
	var tmp mat.Dense
	tmp.Mul(pc, A)
	f.U = new(mat.Dense)
	f.U.Mul(&tmp, pr)
	return f, nil
}

// sampleIndices draws s indices by inverse-CDF sampling of probs.
func sampleIndices(s int, probs []float64, rng *rand.Rand) []int {
	cdf := make([]float64, len(probs))
	var acc float64
	for i, p := range probs {
		acc += p
		cdf[i] = acc
	}
	out := make([]int, s)
	for k := range out {
		v := rng.Float64()
		i := sort.SearchFloat64s(cdf, v)
		if i >= len(cdf) {
			i = len(cdf) - 1
		}
		out[k] = i
	}
	sort.Ints(out)
	return out
}

// pinv returns the Moore-Penrose pseudo-inverse of a through its SVD.
func pinv(a *mat.Dense) (*mat.Dense, error) {
	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return nil, fmt.Errorf("svd of %T: %w", a, core.ErrSingularMatrix)
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	vals := svd.Values(nil)
	r, c := a.Dims()
	tol := 1e-15 * float64(max(r, c))
	if len(vals) > 0 {
		tol *= vals[0]
	}
	inv := mat.NewDiagDense(len(vals), nil)
	for i, s := range vals {
		if s > tol {
			inv.SetDiag(i, 1/s)
		}
	}
	var tmp mat.Dense
	tmp.Mul(&v, inv)
	out := new(mat.Dense)
	out.Mul(&tmp, u.T())
	return out, nil
}

// retained returns the positions whose column of A equals a sampled column of
// C, or whose row equals a sampled row of R.
func (f *curFactors) retained(A mat.Matrix) []int {
	r, c := A.Dims()
	var out []int
	for i := 0; i < max(r, c); i++ {
		if (i < c && matchesColumn(A, i, f.C)) || (i < r && matchesRow(A, i, f.R)) {
			out = append(out, i)
		}
	}
	return out
}

func matchesColumn(A mat.Matrix, i int, C *mat.Dense) bool {
	r, _ := A.Dims()
	_, k := C.Dims()
	for j := 0; j < k; j++ {
		eq := true
		for p := 0; p < r && eq; p++ {
			eq = A.At(p, i) == C.At(p, j)
		}
		if eq {
			return true
		}
	}
	return false
}

func matchesRow(A mat.Matrix, i int, R *mat.Dense) bool {
	_, c := A.Dims()
	k, _ := R.Dims()
	for j := 0; j < k; j++ {
		eq := true
		for q := 0; q < c && eq; q++ {
			eq = A.At(i, q) == R.At(j, q)
		}
		if eq {
			return true
		}
	}
	return false
}

// CUR partitions the pool into batches of about batch points. Each batch,
// together with the points retained so far, is factorized from its energy Gram
// matrix with rank ntrain/2+1, and the points matching a sampled row or column
// join the retained set. No more than ntrain points are kept, preferring those
// with the largest sampling probability in the latest batch.
func (s *Sampler) CUR(method string, ntrain, batch int) (Result, error) {
	start := time.Now()
	if err := validateMethod(method, curMethods); err != nil {
		return Result{}, err
	}
	if ntrain < 1 || batch < 1 {
		return Result{}, fmt.Errorf("ntrain and batch size must be positive, got %d and %d: %w", ntrain, batch, core.ErrInvalidParameter)
	}
	kind, sigma := kernels.TwoBody, s.settings.Sigma2B
	if method == "3b" {
		kind, sigma = kernels.ThreeBody, s.settings.Sigma3B
	}
	b, err := s.builder(kind, sigma)
	if err != nil {
		return Result{}, err
	}

	rank := ntrain/2 + 1
	batches := arraySplit(s.train.Len(), s.train.Len()/batch+1)
	var index []int
	for n, part := range batches {
		batchIndex := union(index, part)
		if len(batchIndex) == 0 {
			continue
		}
		g, err := b.EE(s.train.Subset(batchIndex).Confs)
		if err != nil {
			return Result{}, err
		}
		f, err := factorizeCUR(g, min(rank, len(batchIndex)), s.rng)
		if err != nil {
			return Result{}, err
		}
		keep := f.retained(g)
		for pos, i := range batchIndex {
			if slices.Contains(index, i) && !slices.Contains(keep, pos) {
				keep = append(keep, pos)
			}
		}
		if len(keep) > ntrain {
			sort.SliceStable(keep, func(i, j int) bool {
				return f.rowp[keep[i]]+f.colp[keep[i]] > f.rowp[keep[j]]+f.colp[keep[j]]
			})
			keep = keep[:ntrain]
		}
		index = index[:0:0]
		for _, k := range keep {
			index = append(index, batchIndex[k])
		}
		sort.Ints(index)
		log.Debug().Msgf("CUR batch %d/%d: %d points retained", n+1, len(batches), len(index))
	}
	if len(index) == 0 {
		return Result{}, fmt.Errorf("cur retained no points: %w", core.ErrInsufficientData)
	}

	m, err := s.model(method)
	if err != nil {
		return Result{}, err
	}
	if err := s.fit(m, index, EnergyMetric); err != nil {
		return Result{}, err
	}
	e, err := s.evaluate(m, EnergyMetric)
	if err != nil {
		return Result{}, err
	}
	return result(e, index, start), nil
}
