package kernels

// Base energy kernels. Each is the energy-energy correlation between two lifted
// configurations; derivatives follow from the Number instantiation.

// cutoff is exp(-θ/(r_c - r)) inside the cutoff radius and 0 outside.
func cutoff[T Number[T]](r T, th Theta) T {
	if r.Value() >= th.Cutoff {
		var zero T
		return zero
	}
	return r.Scale(-1).Shift(th.Cutoff).Inv().Scale(-th.Decay).Exp()
}

// se is the squared-exponential similarity of two scalar features.
func se[T Number[T]](x, y T, inv2s2 float64) T {
	d := x.Sub(y)
	return d.Mul(d).Scale(-inv2s2).Exp()
}

func delta(a, b float64) float64 {
	if a == b {
		return 1
	}
	return 0
}

func bodyFor[T Number[T]](key Key) func(a, b *env[T], th Theta) T {
	switch key.Kind {
	case TwoBody:
		if key.Species == TwoSpecies {
			return twoBodyTwoSpecies[T]
		}
		return twoBody[T]
	case ThreeBody:
		if key.Species == TwoSpecies {
			return threeBodyTwoSpecies[T]
		}
		return threeBody[T]
	case ManyBody:
		if key.Species == TwoSpecies {
			return func(a, b *env[T], th Theta) T { return threeBodyTwoSpecies(a, b, th).Scale(1.0 / 20).Exp() }
		}
		return func(a, b *env[T], th Theta) T { return threeBody(a, b, th).Scale(1.0 / 1000).Exp() }
	case Overlap:
		return overlap[T]
	}
	return nil
}

func twoBody[T Number[T]](a, b *env[T], th Theta) T {
	inv := 1 / (2 * th.Sigma * th.Sigma)
	var sum T
	for j := range a.r {
		for m := range b.r {
			sum = sum.Add(se(a.r[j], b.r[m], inv).Mul(a.fc[j]).Mul(b.fc[m]))
		}
	}
	return sum
}

func twoBodyTwoSpecies[T Number[T]](a, b *env[T], th Theta) T {
	inv := 1 / (2 * th.Sigma * th.Sigma)
	var sum T
	for j := range a.r {
		for m := range b.r {
			w := delta(a.central, b.central)*delta(a.species[j], b.species[m]) +
				delta(a.central, b.species[m])*delta(a.species[j], b.central)
			if w == 0 {
				continue
			}
			sum = sum.Add(se(a.r[j], b.r[m], inv).Mul(a.fc[j]).Mul(b.fc[m]).Scale(w))
		}
	}
	return sum
}

// triangleMatch sums the three cyclic matchings of triangle (1, j, k) onto
// triangle (2, m, n), each weighted by its species mask.
func triangleMatch[T Number[T]](a, b *env[T], j, k, m, n int, inv float64, w1, w2, w3 float64) T {
	var sum T
	if w1 != 0 {
		sum = sum.Add(se(a.r[j], b.r[m], inv).Mul(se(a.r[k], b.r[n], inv)).Mul(se(a.rr[j][k], b.rr[m][n], inv)).Scale(w1))
	}
	if w2 != 0 {
		sum = sum.Add(se(a.r[j], b.rr[m][n], inv).Mul(se(a.rr[j][k], b.r[n], inv)).Mul(se(a.r[k], b.r[m], inv)).Scale(w2))
	}
	if w3 != 0 {
		sum = sum.Add(se(a.r[j], b.r[n], inv).Mul(se(a.rr[j][k], b.r[m], inv)).Mul(se(a.r[k], b.rr[m][n], inv)).Scale(w3))
	}
	return sum
}

func threeBody[T Number[T]](a, b *env[T], th Theta) T {
	return threeBodyWeighted(a, b, th, func(j, k, m, n int) (float64, float64, float64) { return 1, 1, 1 })
}

func threeBodyTwoSpecies[T Number[T]](a, b *env[T], th Theta) T {
	return threeBodyWeighted(a, b, th, func(j, k, m, n int) (float64, float64, float64) {
		w1 := delta(a.central, b.central) * delta(a.species[j], b.species[m]) * delta(a.species[k], b.species[n])
		w2 := delta(a.central, b.species[m]) * delta(a.species[j], b.species[n]) * delta(a.species[k], b.central)
		w3 := delta(a.central, b.species[n]) * delta(a.species[k], b.species[m]) * delta(a.species[j], b.central)
		return w1, w2, w3
	})
}

// threeBodyWeighted runs over unordered neighbor pairs j<k of the first
// configuration and ordered pairs m≠n of the second.
func threeBodyWeighted[T Number[T]](a, b *env[T], th Theta, weights func(j, k, m, n int) (float64, float64, float64)) T {
	inv := 1 / (2 * th.Sigma * th.Sigma)
	var sum T
	for j := range a.r {
		for k := j + 1; k < len(a.r); k++ {
			cutA := a.fc[j].Mul(a.fc[k]).Mul(a.fcc[j][k])
			if cutA.Value() == 0 {
				continue
			}
			for m := range b.r {
				for n := range b.r {
					if m == n {
						continue
					}
					cutB := b.fc[m].Mul(b.fc[n]).Mul(b.fcc[m][n])
					if cutB.Value() == 0 {
						continue
					}
					w1, w2, w3 := weights(j, k, m, n)
					if w1 == 0 && w2 == 0 && w3 == 0 {
						continue
					}
					sum = sum.Add(triangleMatch(a, b, j, k, m, n, inv, w1, w2, w3).Mul(cutA).Mul(cutB))
				}
			}
		}
	}
	return sum
}

func overlap[T Number[T]](a, b *env[T], th Theta) T {
	inv := 1 / (2 * th.Sigma * th.Sigma)
	var sum T
	for j := range a.pos {
		for m := range b.pos {
			var d2 T
			for c := 0; c < 3; c++ {
				d := a.pos[j][c].Sub(b.pos[m][c])
				d2 = d2.Add(d.Mul(d))
			}
			sum = sum.Add(d2.Scale(-inv).Exp())
		}
	}
	return sum
}
