package kernels

import (
	"github.com/patrikhermansson/mff/conf"
	"github.com/patrikhermansson/mff/core"
)

// env is a configuration lifted into Number arithmetic. Quantities that depend on
// the central atom (distances to it, neighbor offsets) carry derivatives; the
// neighbor-neighbor distances do not.
type env[T Number[T]] struct {
	r       []T   // |ρ_j|
	fc      []T   // cutoff(|ρ_j|)
	rr      [][]T // |ρ_j - ρ_k|, only for three-body kinds
	fcc     [][]T // cutoff(|ρ_j - ρ_k|)
	pos     [][3]T
	central float64
	species []float64
}

// lifter lifts central-atom dependent quantities for one side of a kernel pair.
type lifter[T Number[T]] struct {
	dist  func(p core.Vec3) T
	coord func(p core.Vec3, axis int) T
}

func realLifter() lifter[Real] {
	return lifter[Real]{
		dist:  func(p core.Vec3) Real { return Real(p.Norm()) },
		coord: func(p core.Vec3, axis int) Real { return Real(p[axis]) },
	}
}

// jetLifter seeds the derivatives of the first (side 1) or second (side 2) configuration.
// Moving the central atom by δ moves every offset ρ_j by -δ.
func jetLifter(side int) lifter[Jet] {
	return lifter[Jet]{
		dist: func(p core.Vec3) Jet {
			n := p.Norm()
			j := Jet{V: n}
			for i := 0; i < 3; i++ {
				if side == 1 {
					j.D1[i] = -p[i] / n
				} else {
					j.D2[i] = -p[i] / n
				}
			}
			return j
		},
		coord: func(p core.Vec3, axis int) Jet {
			j := Jet{V: p[axis]}
			if side == 1 {
				j.D1[axis] = -1
			} else {
				j.D2[axis] = -1
			}
			return j
		},
	}
}

func lift[T Number[T]](c conf.Configuration, kind Kind, th Theta, l lifter[T]) *env[T] {
	n := c.Len()
	e := &env[T]{central: c.CentralSpecies(), species: make([]float64, n)}
	for j := 0; j < n; j++ {
		e.species[j] = c.NeighborSpecies(j)
	}
	if kind == Overlap {
		e.pos = make([][3]T, n)
		for j := 0; j < n; j++ {
			p := c.Position(j)
			for a := 0; a < 3; a++ {
				e.pos[j][a] = l.coord(p, a)
			}
		}
		return e
	}

	e.r = make([]T, n)
	e.fc = make([]T, n)
	for j := 0; j < n; j++ {
		e.r[j] = l.dist(c.Position(j))
		e.fc[j] = cutoff(e.r[j], th)
	}
	if kind == ThreeBody || kind == ManyBody {
		e.rr = make([][]T, n)
		e.fcc = make([][]T, n)
		for j := 0; j < n; j++ {
			e.rr[j] = make([]T, n)
			e.fcc[j] = make([]T, n)
			for k := 0; k < n; k++ {
				if j == k {
					continue
				}
				d := constant[T](c.Position(j).Sub(c.Position(k)).Norm())
				e.rr[j][k] = d
				e.fcc[j][k] = cutoff(d, th)
			}
		}
	}
	return e
}
