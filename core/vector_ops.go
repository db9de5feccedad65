package core

import "math"

// Vec3 is a Cartesian 3-vector (a neighbor offset, a force, an energy-force correlation).
type Vec3 [3]float64

// Mat3 is a 3×3 block, the force-force correlation between two configurations.
type Mat3 [3][3]float64

// Add returns v + w.
func (v Vec3) Add(w Vec3) Vec3 {
	return Vec3{v[0] + w[0], v[1] + w[1], v[2] + w[2]}
}

// Sub returns v - w.
func (v Vec3) Sub(w Vec3) Vec3 {
	return Vec3{v[0] - w[0], v[1] - w[1], v[2] - w[2]}
}

// Scale returns a*v.
func (v Vec3) Scale(a float64) Vec3 {
	return Vec3{a * v[0], a * v[1], a * v[2]}
}

// Norm returns the Euclidean length of v.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

// Add returns m + n.
func (m Mat3) Add(n Mat3) Mat3 {
	var out Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = m[i][j] + n[i][j]
		}
	}
	return out
}

// T returns the transpose of m.
func (m Mat3) T() Mat3 {
	var out Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = m[j][i]
		}
	}
	return out
}

// Diag returns the diagonal of m.
func (m Mat3) Diag() Vec3 {
	return Vec3{m[0][0], m[1][1], m[2][2]}
}
