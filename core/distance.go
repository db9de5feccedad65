package core

import "math"

// Distances is a map of human–readable names to distance functions.
// You can use it to choose a distance metric by name.
var Distances = map[string]DistanceFunc{
	"euclidean":         Euclidean,
	"squared_euclidean": SquaredEuclidean,
}

// DistanceFunc computes the distance between two points in Cartesian space.
type DistanceFunc func(a, b Vec3) float64

// Euclidean computes the Euclidean (L2) distance between two points.
func Euclidean(a, b Vec3) float64 {
	return math.Sqrt(SquaredEuclidean(a, b))
}

// SquaredEuclidean computes the squared Euclidean distance between two points.
func SquaredEuclidean(a, b Vec3) float64 {
	dx, dy, dz := a[0]-b[0], a[1]-b[1], a[2]-b[2]
	return dx*dx + dy*dy + dz*dz
}

// PairwiseDistances returns the full n×n matrix of distances between points,
// row-major, using distance. The diagonal is zero.
func PairwiseDistances(points []Vec3, distance DistanceFunc) [][]float64 {
	n := len(points)
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := 0; j < i; j++ {
			d := distance(points[i], points[j])
			out[i][j] = d
			out[j][i] = d
		}
	}
	return out
}
