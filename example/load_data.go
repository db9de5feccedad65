package example

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sort"

	"github.com/patrikhermansson/mff/conf"
	"github.com/patrikhermansson/mff/core"
	"github.com/rs/zerolog/log"
)

// LennardJones describes the synthetic clusters used by the example programs.
type LennardJones struct {
	Epsilon float64 // well depth
	Sigma   float64 // zero crossing of the pair potential
	Atoms   int     // atoms per cluster
	Box     float64 // side of the cube the atoms are placed in
	MinDist float64 // closest allowed approach between two atoms
}

// DefaultLennardJones is an argon-like cluster of 10 atoms in reduced units.
func DefaultLennardJones() LennardJones {
	return LennardJones{Epsilon: 1, Sigma: 1, Atoms: 10, Box: 3, MinDist: 0.9}
}

func (lj LennardJones) pair(r float64) (energy, dvdr float64) {
	s6 := math.Pow(lj.Sigma/r, 6)
	s12 := s6 * s6
	return 4 * lj.Epsilon * (s12 - s6), -24 * lj.Epsilon * (2*s12 - s6) / r
}

// Snapshots places n random clusters and labels every atom with half of its
// pair energies and the force acting on it. Neighbor lists are sorted by
// distance.
func (lj LennardJones) Snapshots(n int, rng *rand.Rand) ([]conf.Snapshot, error) {
	if lj.Atoms < 2 || lj.Box <= 0 || lj.Sigma <= 0 {
		return nil, fmt.Errorf("lennard-jones cluster %+v: %w", lj, core.ErrInvalidParameter)
	}
	out := make([]conf.Snapshot, 0, n)
	for s := 0; s < n; s++ {
		pos, err := lj.place(rng)
		if err != nil {
			return nil, err
		}
		snap := conf.Snapshot{
			Environments: make([][]conf.Record, lj.Atoms),
			Energies:     make([]float64, lj.Atoms),
			Forces:       make([]core.Vec3, lj.Atoms),
		}
		for i, pi := range pos {
			env := make([]conf.Record, 0, lj.Atoms-1)
			for j, pj := range pos {
				if i == j {
					continue
				}
				d := pj.Sub(pi)
				r := d.Norm()
				e, dv := lj.pair(r)
				snap.Energies[i] += e / 2
				// F_i = -dV/dr_i = dV/dr * d/r
				snap.Forces[i] = snap.Forces[i].Add(d.Scale(dv / r))
				env = append(env, conf.Record{d[0], d[1], d[2], 1, 1})
			}
			sort.Slice(env, func(a, b int) bool {
				return norm(env[a]) < norm(env[b])
			})
			snap.Environments[i] = env
		}
		out = append(out, snap)
	}
	return out, nil
}

func norm(r conf.Record) float64 {
	return math.Sqrt(r[0]*r[0] + r[1]*r[1] + r[2]*r[2])
}

// place draws atom positions by rejection until no two atoms are closer than MinDist.
func (lj LennardJones) place(rng *rand.Rand) ([]core.Vec3, error) {
	pos := make([]core.Vec3, 0, lj.Atoms)
	for tries := 0; len(pos) < lj.Atoms; tries++ {
		if tries > 10000*lj.Atoms {
			return nil, fmt.Errorf("cannot place %d atoms %.2f apart in a box of %.2f: %w",
				lj.Atoms, lj.MinDist, lj.Box, core.ErrInvalidParameter)
		}
		p := core.Vec3{lj.Box * rng.Float64(), lj.Box * rng.Float64(), lj.Box * rng.Float64()}
		ok := true
		for _, q := range pos {
			if p.Sub(q).Norm() < lj.MinDist {
				ok = false
				break
			}
		}
		if ok {
			pos = append(pos, p)
		}
	}
	return pos, nil
}

// LoadDataset reads a gob dataset from path. When the file does not exist, n
// clusters are generated, cleaned to one environment each and saved there.
func LoadDataset(path string, n int, lj LennardJones, rng *rand.Rand) (conf.Dataset, error) {
	ds, err := conf.Load(path)
	if err == nil {
		log.Info().Msgf("Loaded %d configurations from %s", ds.Len(), path)
		return ds, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return conf.Dataset{}, err
	}

	log.Info().Msgf("Generating %d Lennard-Jones clusters of %d atoms", n, lj.Atoms)
	snaps, err := lj.Snapshots(n, rng)
	if err != nil {
		return conf.Dataset{}, err
	}
	ds, err = conf.Clean(snaps, conf.CleanOptions{Natoms: lj.Atoms, Randomized: true, Shuffle: true, Rand: rng})
	if err != nil {
		return conf.Dataset{}, err
	}
	if err := ds.Save(path); err != nil {
		return conf.Dataset{}, err
	}
	log.Info().Msgf("Saved %d configurations to %s", ds.Len(), path)
	return ds, nil
}
