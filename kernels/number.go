package kernels

import "math"

// Number is the arithmetic a base energy kernel is written against. A kernel body
// written once over Number evaluates the energy-energy correlation when
// instantiated with Real, and its exact first and mixed second derivatives when
// instantiated with Jet.
//
// The zero value of every Number implementation is the additive identity.
type Number[T any] interface {
	Add(T) T
	Sub(T) T
	Mul(T) T
	Scale(float64) T
	Shift(float64) T
	Exp() T
	Inv() T
	Value() float64
}

// Real is a plain float64 carrying no derivatives.
type Real float64

func (a Real) Add(b Real) Real { return a + b }
func (a Real) Sub(b Real) Real { return a - b }
func (a Real) Mul(b Real) Real { return a * b }
func (a Real) Scale(s float64) Real { return a * Real(s) }
func (a Real) Shift(s float64) Real { return a + Real(s) }
func (a Real) Exp() Real { return Real(math.Exp(float64(a))) }
func (a Real) Inv() Real { return 1 / a }
func (a Real) Value() float64 { return float64(a) }

// Jet is a truncated hyper-dual number over the positions of the two central atoms
// r1 and r2. D1 holds ∂/∂r1, D2 holds ∂/∂r2 and D12[i][j] holds ∂²/∂r1_i∂r2_j.
// Pure second derivatives on a single side are never needed and are not tracked.
type Jet struct {
	V   float64
	D1  [3]float64
	D2  [3]float64
	D12 [3][3]float64
}

func (a Jet) Add(b Jet) Jet {
	c := Jet{V: a.V + b.V}
	for i := 0; i < 3; i++ {
		c.D1[i] = a.D1[i] + b.D1[i]
		c.D2[i] = a.D2[i] + b.D2[i]
		for j := 0; j < 3; j++ {
			c.D12[i][j] = a.D12[i][j] + b.D12[i][j]
		}
	}
	return c
}

func (a Jet) Sub(b Jet) Jet { return a.Add(b.Scale(-1)) }

func (a Jet) Mul(b Jet) Jet {
	c := Jet{V: a.V * b.V}
	for i := 0; i < 3; i++ {
		c.D1[i] = a.V*b.D1[i] + a.D1[i]*b.V
		c.D2[i] = a.V*b.D2[i] + a.D2[i]*b.V
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			c.D12[i][j] = a.V*b.D12[i][j] + a.D12[i][j]*b.V + a.D1[i]*b.D2[j] + a.D2[j]*b.D1[i]
		}
	}
	return c
}

func (a Jet) Scale(s float64) Jet {
	c := Jet{V: a.V * s}
	for i := 0; i < 3; i++ {
		c.D1[i] = a.D1[i] * s
		c.D2[i] = a.D2[i] * s
		for j := 0; j < 3; j++ {
			c.D12[i][j] = a.D12[i][j] * s
		}
	}
	return c
}

func (a Jet) Shift(s float64) Jet {
	a.V += s
	return a
}

func (a Jet) Exp() Jet {
	e := math.Exp(a.V)
	return a.chain(e, e, e)
}

func (a Jet) Inv() Jet {
	v := 1 / a.V
	return a.chain(v, -v*v, 2*v*v*v)
}

func (a Jet) Value() float64 { return a.V }

// chain applies a scalar function g with value g0 and derivatives g1, g2 at a.V.
func (a Jet) chain(g0, g1, g2 float64) Jet {
	c := Jet{V: g0}
	for i := 0; i < 3; i++ {
		c.D1[i] = g1 * a.D1[i]
		c.D2[i] = g1 * a.D2[i]
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			c.D12[i][j] = g1*a.D12[i][j] + g2*a.D1[i]*a.D2[j]
		}
	}
	return c
}

func constant[T Number[T]](v float64) T {
	var z T
	return z.Shift(v)
}
