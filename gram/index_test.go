package gram_test

import (
	"testing"

	"github.com/patrikhermansson/mff/gram"
)

func TestTriIndexBijection(t *testing.T) {
	for _, n := range []int{1, 2, 3, 7, 50, 301} {
		total := n * (n + 1) / 2
		seen := make([]bool, total)
		for i := 0; i < n; i++ {
			for j := 0; j <= i; j++ {
				k := gram.TriIndex(i, j)
				if k < 0 || k >= total {
					t.Fatalf("n=%d: index %d of (%d, %d) out of range", n, k, i, j)
				}
				if seen[k] {
					t.Fatalf("n=%d: index %d assigned twice", n, k)
				}
				seen[k] = true
				if gi, gj := gram.TriPair(k); gi != i || gj != j {
					t.Fatalf("n=%d: TriPair(%d) = (%d, %d), want (%d, %d)", n, k, gi, gj, i, j)
				}
			}
		}
	}
}

func TestPartition(t *testing.T) {
	tests := []struct {
		name   string
		n      int
		ncores int
		sizes  []int
	}{
		{"even", 8, 4, []int{2, 2, 2, 2}},
		{"truncated last", 10, 4, []int{3, 3, 3, 1}},
		{"more cores than items", 3, 8, []int{1, 1, 1}},
		{"single core", 5, 1, []int{5}},
		{"empty", 0, 4, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := gram.Partition(tt.n, tt.ncores)
			if len(chunks) != len(tt.sizes) {
				t.Fatalf("expected %d chunks, got %d", len(tt.sizes), len(chunks))
			}
			next := 0
			for p, c := range chunks {
				if c.Start != next {
					t.Errorf("chunk %d starts at %d, want %d", p, c.Start, next)
				}
				if c.Len() != tt.sizes[p] {
					t.Errorf("chunk %d has %d indices, want %d", p, c.Len(), tt.sizes[p])
				}
				next = c.End
			}
			if next != tt.n {
				t.Errorf("chunks end at %d, want %d", next, tt.n)
			}
		})
	}
}
