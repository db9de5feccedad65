package gram

import (
	"fmt"

	"github.com/patrikhermansson/mff/conf"
	"github.com/patrikhermansson/mff/core"
	"github.com/patrikhermansson/mff/kernels"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"
)

// Builder assembles Gram matrices from a kernel. A nil Pool runs serially.
type Builder struct {
	Kernel kernels.Kernel
	Pool   Pool
	// EvalGradient requests the gradient of the Gram matrix with respect to
	// the hyperparameters, which is not supported.
	EvalGradient bool
}

// NewBuilder returns a builder over kernel using pool.
func NewBuilder(kernel kernels.Kernel, pool Pool) *Builder {
	return &Builder{Kernel: kernel, Pool: pool}
}

func (b *Builder) workers() int {
	if b.Pool == nil {
		return 1
	}
	return b.Pool.Workers()
}

func (b *Builder) check() error {
	if b.EvalGradient {
		return fmt.Errorf("gram of %s: %w", b.Kernel.Name(), core.ErrNotImplementedGradient)
	}
	return nil
}

// pairFunc writes the width values of pair (i, j) into out.
type pairFunc func(i, j int, out []float64)

// flat evaluates fn for every flat index in [0, total), where index maps a flat
// index back to its pair. With a single worker this is a plain loop; otherwise
// the range is partitioned and dispatched to the pool, and the chunk results are
// copied back by their static flat offsets.
func (b *Builder) flat(total, width int, index func(k int) (int, int), fn pairFunc) ([]float64, error) {
	out := make([]float64, total*width)
	workers := b.workers()
	log.Debug().Msgf("Using %d cores for %d %s kernel evaluations", workers, total, b.Kernel.Name())
	if workers <= 1 || total < 2 {
		res, err := run(func(c Chunk) ([]float64, error) {
			for k := c.Start; k < c.End; k++ {
				i, j := index(k)
				fn(i, j, out[k*width:(k+1)*width])
			}
			return out, nil
		}, Chunk{Start: 0, End: total})
		return res, err
	}

	chunks := Partition(total, workers)
	parts, err := b.Pool.Map(chunks, func(c Chunk) ([]float64, error) {
		part := make([]float64, c.Len()*width)
		for k := c.Start; k < c.End; k++ {
			i, j := index(k)
			fn(i, j, part[(k-c.Start)*width:(k-c.Start+1)*width])
		}
		return part, nil
	})
	if err != nil {
		return nil, fmt.Errorf("gram of %s: %w", b.Kernel.Name(), err)
	}
	for p, c := range chunks {
		copy(out[c.Start*width:c.End*width], parts[p])
	}
	return out, nil
}

func (b *Builder) triangle(n, width int, fn pairFunc) ([]float64, error) {
	return b.flat(n*(n+1)/2, width, TriPair, fn)
}

func (b *Builder) rect(n1, n2, width int, fn pairFunc) ([]float64, error) {
	if n2 == 0 {
		return nil, nil
	}
	return b.flat(n1*n2, width, func(k int) (int, int) { return k / n2, k % n2 }, fn)
}

// EE returns the N×N energy-energy Gram matrix of X.
func (b *Builder) EE(X []conf.Configuration) (*mat.SymDense, error) {
	if err := b.check(); err != nil {
		return nil, err
	}
	n := len(X)
	if n == 0 {
		return nil, fmt.Errorf("gram of an empty set: %w", core.ErrInsufficientData)
	}
	vals, err := b.triangle(n, 1, func(i, j int, out []float64) {
		out[0] = b.Kernel.EE(X[i], X[j])
	})
	if err != nil {
		return nil, err
	}
	g := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			g.SetSym(i, j, vals[TriIndex(i, j)])
		}
	}
	return g, nil
}

// FF returns the 3N×3N force-force Gram matrix of X. Block (i, j) is FF(X_i, X_j)
// and block (j, i) its transpose.
func (b *Builder) FF(X []conf.Configuration) (*mat.SymDense, error) {
	if err := b.check(); err != nil {
		return nil, err
	}
	n := len(X)
	if n == 0 {
		return nil, fmt.Errorf("gram of an empty set: %w", core.ErrInsufficientData)
	}
	vals, err := b.triangle(n, 9, func(i, j int, out []float64) {
		putMat3(out, b.Kernel.FF(X[i], X[j]))
	})
	if err != nil {
		return nil, err
	}
	g := mat.NewSymDense(3*n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			blk := vals[TriIndex(i, j)*9:]
			for r := 0; r < 3; r++ {
				for c := 0; c < 3; c++ {
					if i == j {
						if c < r {
							continue
						}
						g.SetSym(3*i+r, 3*i+c, (blk[3*r+c]+blk[3*c+r])/2)
						continue
					}
					g.SetSym(3*i+r, 3*j+c, blk[3*r+c])
				}
			}
		}
	}
	return g, nil
}

// EF returns the N_glob×3N energy-force Gram matrix: row g correlates the total
// energy of globals[g] (the sum over its configurations) with the force on each
// configuration of X.
func (b *Builder) EF(X []conf.Configuration, globals [][]conf.Configuration) (*mat.Dense, error) {
	if err := b.check(); err != nil {
		return nil, err
	}
	if len(X) == 0 || len(globals) == 0 {
		return nil, fmt.Errorf("gram of an empty set: %w", core.ErrInsufficientData)
	}
	n := len(X)
	vals, err := b.rect(len(globals), n, 3, func(g, i int, out []float64) {
		var v core.Vec3
		for _, c := range globals[g] {
			v = v.Add(b.Kernel.EF(c, X[i]))
		}
		copy(out, v[:])
	})
	if err != nil {
		return nil, err
	}
	return mat.NewDense(len(globals), 3*n, vals), nil
}

// CrossEE returns the N1×N2 matrix EE(X1_i, X2_j).
func (b *Builder) CrossEE(X1, X2 []conf.Configuration) (*mat.Dense, error) {
	if err := b.check(); err != nil {
		return nil, err
	}
	if len(X1) == 0 || len(X2) == 0 {
		return nil, fmt.Errorf("gram of an empty set: %w", core.ErrInsufficientData)
	}
	vals, err := b.rect(len(X1), len(X2), 1, func(i, j int, out []float64) {
		out[0] = b.Kernel.EE(X1[i], X2[j])
	})
	if err != nil {
		return nil, err
	}
	return mat.NewDense(len(X1), len(X2), vals), nil
}

// CrossEF returns the N1×3N2 matrix with block (i, j) = EF(X1_i, X2_j).
func (b *Builder) CrossEF(X1, X2 []conf.Configuration) (*mat.Dense, error) {
	if err := b.check(); err != nil {
		return nil, err
	}
	if len(X1) == 0 || len(X2) == 0 {
		return nil, fmt.Errorf("gram of an empty set: %w", core.ErrInsufficientData)
	}
	vals, err := b.rect(len(X1), len(X2), 3, func(i, j int, out []float64) {
		v := b.Kernel.EF(X1[i], X2[j])
		copy(out, v[:])
	})
	if err != nil {
		return nil, err
	}
	// row-major pair order with 3 values per pair is already the N1×3N2 layout
	return mat.NewDense(len(X1), 3*len(X2), vals), nil
}

// CrossFF returns the 3N1×3N2 matrix with block (i, j) = FF(X1_i, X2_j).
func (b *Builder) CrossFF(X1, X2 []conf.Configuration) (*mat.Dense, error) {
	if err := b.check(); err != nil {
		return nil, err
	}
	if len(X1) == 0 || len(X2) == 0 {
		return nil, fmt.Errorf("gram of an empty set: %w", core.ErrInsufficientData)
	}
	n2 := len(X2)
	vals, err := b.rect(len(X1), n2, 9, func(i, j int, out []float64) {
		putMat3(out, b.Kernel.FF(X1[i], X2[j]))
	})
	if err != nil {
		return nil, err
	}
	g := mat.NewDense(3*len(X1), 3*n2, nil)
	for i := range X1 {
		for j := 0; j < n2; j++ {
			blk := vals[(i*n2+j)*9:]
			for r := 0; r < 3; r++ {
				for c := 0; c < 3; c++ {
					g.Set(3*i+r, 3*j+c, blk[3*r+c])
				}
			}
		}
	}
	return g, nil
}

func putMat3(out []float64, m core.Mat3) {
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			out[3*r+c] = m[r][c]
		}
	}
}
