package conf

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/patrikhermansson/mff/core"
)

// Dataset is a set of configurations with aligned energy and force labels.
// It is treated as read-only once built; every transformation returns a new Dataset.
type Dataset struct {
	Confs    []Configuration
	Energies []float64
	Forces   []core.Vec3
}

// NewDataset validates that the three containers are aligned and that every
// configuration has the same number of neighbors.
func NewDataset(confs []Configuration, energies []float64, forces []core.Vec3) (Dataset, error) {
	if len(energies) != len(confs) || len(forces) != len(confs) {
		return Dataset{}, fmt.Errorf("dataset has %d configurations, %d energies and %d forces: %w",
			len(confs), len(energies), len(forces), core.ErrConfigurationShape)
	}
	if len(confs) > 0 {
		want := confs[0].Len()
		for i, c := range confs {
			if c.Len() == 0 {
				return Dataset{}, &ShapeError{Index: i, Expected: want, Got: 0, Reason: "empty configuration"}
			}
			if c.Len() != want {
				return Dataset{}, &ShapeError{Index: i, Expected: want, Got: c.Len(), Reason: "ragged neighbor count"}
			}
		}
	}
	return Dataset{Confs: confs, Energies: energies, Forces: forces}, nil
}

// Len returns the number of configurations.
func (d Dataset) Len() int { return len(d.Confs) }

// Neighbors returns the fixed neighbor count of the dataset, or 0 when it is empty.
func (d Dataset) Neighbors() int {
	if len(d.Confs) == 0 {
		return 0
	}
	return d.Confs[0].Len()
}

// Subset returns the dataset restricted to idx, in the order given.
func (d Dataset) Subset(idx []int) Dataset {
	out := Dataset{
		Confs:    make([]Configuration, len(idx)),
		Energies: make([]float64, len(idx)),
		Forces:   make([]core.Vec3, len(idx)),
	}
	for k, i := range idx {
		out.Confs[k] = d.Confs[i]
		out.Energies[k] = d.Energies[i]
		out.Forces[k] = d.Forces[i]
	}
	return out
}

// Elements returns the sorted distinct central species codes.
func (d Dataset) Elements() []float64 {
	seen := make(map[float64]struct{})
	for _, c := range d.Confs {
		seen[c.CentralSpecies()] = struct{}{}
	}
	out := make([]float64, 0, len(seen))
	for e := range seen {
		out = append(out, e)
	}
	sort.Float64s(out)
	return out
}

// CenteredEnergies returns a copy whose energies have zero mean.
// The global additive offset is not part of the fit.
func (d Dataset) CenteredEnergies() Dataset {
	out := d
	out.Energies = make([]float64, len(d.Energies))
	if len(d.Energies) == 0 {
		return out
	}
	var mean float64
	for _, e := range d.Energies {
		mean += e
	}
	mean /= float64(len(d.Energies))
	for i, e := range d.Energies {
		out.Energies[i] = e - mean
	}
	return out
}

// Shuffle returns a copy in a random order drawn from rng.
func (d Dataset) Shuffle(rng *rand.Rand) Dataset {
	return d.Subset(rng.Perm(d.Len()))
}
