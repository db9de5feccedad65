package kernels

import (
	"fmt"
	"sync"

	"github.com/patrikhermansson/mff/conf"
	"github.com/patrikhermansson/mff/core"
	"github.com/rs/zerolog/log"
)

// Compiled is the artifact produced for one Key: the energy-energy,
// energy-force and force-force correlations of a base energy kernel.
// A Compiled value is immutable and safe for concurrent use.
type Compiled struct {
	Key Key

	real func(a, b *env[Real], th Theta) Real
	jet  func(a, b *env[Jet], th Theta) Jet
}

// Compile derives the three correlation functions of the base kernel named by key.
func Compile(key Key) (*Compiled, error) {
	if _, ok := kindNames[key.Kind]; !ok {
		return nil, fmt.Errorf("compile %v: %w", key, core.ErrUnsupportedKernel)
	}
	if key.Species != SingleSpecies && key.Species != TwoSpecies {
		return nil, fmt.Errorf("compile %v: unknown species arity: %w", key, core.ErrUnsupportedKernel)
	}
	return &Compiled{
		Key:  key,
		real: bodyFor[Real](key),
		jet:  bodyFor[Jet](key),
	}, nil
}

// EE returns k(a, b).
func (c *Compiled) EE(a, b conf.Configuration, th Theta) float64 {
	l := realLifter()
	return c.real(lift(a, c.Key.Kind, th, l), lift(b, c.Key.Kind, th, l), th).Value()
}

// EF returns -∂k(a, b)/∂r2, the covariance between the energy of a and the force on b.
func (c *Compiled) EF(a, b conf.Configuration, th Theta) core.Vec3 {
	j := c.pair(a, b, th)
	return core.Vec3{-j.D2[0], -j.D2[1], -j.D2[2]}
}

// FF returns ∂²k(a, b)/∂r1∂r2.
func (c *Compiled) FF(a, b conf.Configuration, th Theta) core.Mat3 {
	return core.Mat3(c.pair(a, b, th).D12)
}

func (c *Compiled) pair(a, b conf.Configuration, th Theta) Jet {
	return c.jet(lift(a, c.Key.Kind, th, jetLifter(1)), lift(b, c.Key.Kind, th, jetLifter(2)), th)
}

// Store caches compiled artifacts by Key. It replaces any ambient on-disk cache:
// callers hold a Store and pass it to New.
type Store struct {
	mu       sync.Mutex
	compiled map[Key]*Compiled
}

// NewStore returns an empty artifact store.
func NewStore() *Store {
	return &Store{compiled: make(map[Key]*Compiled)}
}

// Load returns the artifact for key, compiling it on first use.
func (s *Store) Load(key Key) (*Compiled, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.compiled[key]; ok {
		return c, nil
	}
	c, err := Compile(key)
	if err != nil {
		return nil, err
	}
	log.Debug().Msgf("Compiled %v kernel", key)
	s.compiled[key] = c
	return c, nil
}

// Len returns the number of cached artifacts.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.compiled)
}
