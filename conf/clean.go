package conf

import (
	"fmt"
	"math/rand"

	"github.com/patrikhermansson/mff/core"
	"github.com/rs/zerolog/log"
)

// Snapshot is the raw output of configuration extraction for one frame of a
// trajectory: one neighbor list per atom, each with its energy and force label.
// Neighbor lists may be ragged; Clean normalizes them.
type Snapshot struct {
	Environments [][]Record
	Energies     []float64
	Forces       []core.Vec3
}

// CleanOptions controls how Clean reduces snapshots to a dataset.
type CleanOptions struct {
	Natoms     int        // atoms per snapshot; every kept configuration has Natoms-1 neighbors
	Randomized bool       // pick a random atom per snapshot instead of the first valid one
	Shuffle    bool       // shuffle the resulting dataset
	Rand       *rand.Rand // required when Randomized or Shuffle is set
}

// Clean keeps one local environment per snapshot, so that every configuration
// carries a unique energy and no snapshot contributes redundant environments.
// Environments with more than Natoms-1 neighbors are truncated; shorter ones are
// skipped with a warning. Energies of the result have zero mean.
func Clean(snapshots []Snapshot, opts CleanOptions) (Dataset, error) {
	if opts.Natoms < 2 {
		return Dataset{}, fmt.Errorf("natoms must be at least 2, got %d: %w", opts.Natoms, core.ErrInvalidParameter)
	}
	if (opts.Randomized || opts.Shuffle) && opts.Rand == nil {
		return Dataset{}, fmt.Errorf("a random source is required to randomize or shuffle: %w", core.ErrInvalidParameter)
	}
	want := opts.Natoms - 1

	var (
		confs    []Configuration
		energies []float64
		forces   []core.Vec3
	)
	for s, snap := range snapshots {
		if len(snap.Energies) != len(snap.Environments) || len(snap.Forces) != len(snap.Environments) {
			return Dataset{}, fmt.Errorf("snapshot %d has %d environments, %d energies and %d forces: %w",
				s, len(snap.Environments), len(snap.Energies), len(snap.Forces), core.ErrConfigurationShape)
		}
		var valid []int
		for a, env := range snap.Environments {
			if len(env) < want {
				log.Warn().Msgf("Snapshot %d atom %d has %d neighbors, expected %d; skipping", s, a, len(env), want)
				continue
			}
			valid = append(valid, a)
		}
		if len(valid) == 0 {
			continue
		}
		pick := valid[0]
		if opts.Randomized {
			pick = valid[opts.Rand.Intn(len(valid))]
		}
		c, err := New(snap.Environments[pick][:want])
		if err != nil {
			log.Warn().Err(err).Msgf("Snapshot %d atom %d rejected", s, pick)
			continue
		}
		confs = append(confs, c)
		energies = append(energies, snap.Energies[pick])
		forces = append(forces, snap.Forces[pick])
	}

	ds, err := NewDataset(confs, energies, forces)
	if err != nil {
		return Dataset{}, err
	}
	ds = ds.CenteredEnergies()
	if opts.Shuffle {
		ds = ds.Shuffle(opts.Rand)
	}
	log.Debug().Msgf("Cleaned %d snapshots into %d configurations", len(snapshots), ds.Len())
	return ds, nil
}
