// Package conf holds the immutable numeric records the rest of the module works on:
// local atomic environments (configurations), labeled datasets and train/test splits.
package conf

import (
	"fmt"

	"github.com/patrikhermansson/mff/core"
)

// RecordWidth is the number of values per neighbor record: dx, dy, dz,
// central species code, neighbor species code.
const RecordWidth = 5

// Record is a single neighbor of the central atom.
type Record [RecordWidth]float64

// ShapeError reports a configuration that does not match the expected neighbors×5 shape.
type ShapeError struct {
	Index    int // position of the offending configuration, -1 when not part of a set
	Expected int // expected neighbor count (or flat length for FromFlat)
	Got      int
	Reason   string
}

func (e *ShapeError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("configuration %d: %s (expected %d, got %d)", e.Index, e.Reason, e.Expected, e.Got)
	}
	return fmt.Sprintf("configuration: %s (expected %d, got %d)", e.Reason, e.Expected, e.Got)
}

// Unwrap lets errors.Is match core.ErrConfigurationShape.
func (e *ShapeError) Unwrap() error { return core.ErrConfigurationShape }

// Configuration is the local neighbor environment of one central atom, stored
// as a flat row-major neighbors×5 array. The zero value is an empty configuration.
type Configuration struct {
	data []float64
}

// New builds a configuration from neighbor records. The central atom must not
// appear in its own list, so a record at the origin is rejected.
func New(records []Record) (Configuration, error) {
	data := make([]float64, 0, len(records)*RecordWidth)
	for i, r := range records {
		if r[0] == 0 && r[1] == 0 && r[2] == 0 {
			return Configuration{}, &ShapeError{Index: -1, Expected: 0, Got: i,
				Reason: "neighbor record coincides with the central atom"}
		}
		data = append(data, r[:]...)
	}
	return Configuration{data: data}, nil
}

// MustNew is like New but panics on error. Intended for tests and fixtures.
func MustNew(records []Record) Configuration {
	c, err := New(records)
	if err != nil {
		panic(err)
	}
	return c
}

// FromFlat builds a configuration from a flat neighbors×5 array. The slice is copied.
func FromFlat(data []float64, neighbors int) (Configuration, error) {
	if neighbors < 0 || len(data) != neighbors*RecordWidth {
		return Configuration{}, &ShapeError{Index: -1, Expected: neighbors * RecordWidth, Got: len(data),
			Reason: "flat array is not neighbors×5"}
	}
	records := make([]Record, neighbors)
	for i := range records {
		copy(records[i][:], data[i*RecordWidth:(i+1)*RecordWidth])
	}
	return New(records)
}

// Len returns the number of neighbors.
func (c Configuration) Len() int { return len(c.data) / RecordWidth }

// Record returns the i-th neighbor record.
func (c Configuration) Record(i int) Record {
	var r Record
	copy(r[:], c.data[i*RecordWidth:(i+1)*RecordWidth])
	return r
}

// Position returns the offset of the i-th neighbor from the central atom.
func (c Configuration) Position(i int) core.Vec3 {
	o := i * RecordWidth
	return core.Vec3{c.data[o], c.data[o+1], c.data[o+2]}
}

// Distance returns the distance of the i-th neighbor from the central atom.
func (c Configuration) Distance(i int) float64 {
	return c.Position(i).Norm()
}

// CentralSpecies returns the species code of the central atom, or 0 for an empty configuration.
func (c Configuration) CentralSpecies() float64 {
	if len(c.data) == 0 {
		return 0
	}
	return c.data[3]
}

// NeighborSpecies returns the species code of the i-th neighbor.
func (c Configuration) NeighborSpecies(i int) float64 {
	return c.data[i*RecordWidth+4]
}

// Flat returns a copy of the underlying neighbors×5 array.
func (c Configuration) Flat() []float64 {
	out := make([]float64, len(c.data))
	copy(out, c.data)
	return out
}

// Truncate returns the configuration restricted to its first n neighbors.
func (c Configuration) Truncate(n int) Configuration {
	if n >= c.Len() {
		return c
	}
	out := make([]float64, n*RecordWidth)
	copy(out, c.data)
	return Configuration{data: out}
}

// Shift returns a copy with every neighbor moved by delta along axis (0, 1 or 2).
// Moving all neighbors by delta is the same as moving the central atom by -delta.
func (c Configuration) Shift(axis int, delta float64) Configuration {
	out := c.Flat()
	for i := 0; i < c.Len(); i++ {
		out[i*RecordWidth+axis] += delta
	}
	return Configuration{data: out}
}
