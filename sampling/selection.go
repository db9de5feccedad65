package sampling

import (
	"fmt"
	"sort"

	"github.com/patrikhermansson/mff/core"
)

// selection is the selected/available mask over the training pool. It belongs
// to a single strategy run.
type selection struct {
	selected []bool
	count    int
}

func newSelection(n int) *selection {
	return &selection{selected: make([]bool, n)}
}

func (s *selection) mark(i int) error {
	if i < 0 || i >= len(s.selected) {
		return fmt.Errorf("pool index %d outside [0, %d): %w", i, len(s.selected), core.ErrInvalidParameter)
	}
	if s.selected[i] {
		return fmt.Errorf("pool index %d selected twice: %w", i, core.ErrInvalidParameter)
	}
	s.selected[i] = true
	s.count++
	return nil
}

func (s *selection) isSelected(i int) bool { return s.selected[i] }

// available returns the unselected indices in ascending order.
func (s *selection) available() []int {
	out := make([]int, 0, len(s.selected)-s.count)
	for i, sel := range s.selected {
		if !sel {
			out = append(out, i)
		}
	}
	return out
}

// indices returns the selected indices in ascending order.
func (s *selection) indices() []int {
	out := make([]int, 0, s.count)
	for i, sel := range s.selected {
		if sel {
			out = append(out, i)
		}
	}
	return out
}

func (s *selection) len() int { return s.count }

// union returns the sorted union of two index sets.
func union(a, b []int) []int {
	seen := make(map[int]struct{}, len(a)+len(b))
	for _, x := range a {
		seen[x] = struct{}{}
	}
	for _, x := range b {
		seen[x] = struct{}{}
	}
	out := make([]int, 0, len(seen))
	for x := range seen {
		out = append(out, x)
	}
	sort.Ints(out)
	return out
}

// arraySplit splits [0, n) into parts contiguous batches whose sizes differ by
// at most one, larger batches first.
func arraySplit(n, parts int) [][]int {
	if parts < 1 {
		parts = 1
	}
	size, extra := n/parts, n%parts
	out := make([][]int, 0, parts)
	start := 0
	for p := 0; p < parts; p++ {
		l := size
		if p < extra {
			l++
		}
		batch := make([]int, l)
		for i := range batch {
			batch[i] = start + i
		}
		out = append(out, batch)
		start += l
	}
	return out
}
