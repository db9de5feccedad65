// Package gram assembles Gram matrices over configuration sets, exploiting
// symmetry and, optionally, a pool of workers.
package gram

import "math"

// TriIndex numbers the pair (i, j), j <= i, as j + i(i+1)/2. Over an n-set the
// numbering is a bijection onto [0, n(n+1)/2).
func TriIndex(i, j int) int {
	return j + i*(i+1)/2
}

// TriPair inverts TriIndex.
func TriPair(k int) (i, j int) {
	i = int((math.Sqrt(float64(8*k+1)) - 1) / 2)
	// correct for rounding of the square root on large k
	for i*(i+1)/2 > k {
		i--
	}
	for (i+1)*(i+2)/2 <= k {
		i++
	}
	return i, k - i*(i+1)/2
}

// Chunk is the contiguous flat index range [Start, End).
type Chunk struct {
	Start, End int
}

// Len returns the number of indices in the chunk.
func (c Chunk) Len() int { return c.End - c.Start }

// Partition splits [0, n) into contiguous chunks of size ceil(n/ncores); the
// last chunk is truncated to what remains. Fewer than ncores chunks are returned
// when n is small.
func Partition(n, ncores int) []Chunk {
	if n <= 0 {
		return nil
	}
	if ncores < 1 {
		ncores = 1
	}
	size := (n + ncores - 1) / ncores
	chunks := make([]Chunk, 0, ncores)
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		chunks = append(chunks, Chunk{Start: start, End: end})
	}
	return chunks
}
