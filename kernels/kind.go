package kernels

import (
	"fmt"
	"strings"

	"github.com/patrikhermansson/mff/core"
)

// Kind is the body order of a base energy kernel.
type Kind int

const (
	TwoBody Kind = iota
	ThreeBody
	ManyBody
	// Overlap compares neighbor positions directly instead of distances.
	Overlap
)

var kindNames = map[Kind]string{
	TwoBody:   "2b",
	ThreeBody: "3b",
	ManyBody:  "mb",
	Overlap:   "overlap",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind maps a body-order name to its Kind.
func ParseKind(s string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("kernel kind %q: %w", s, core.ErrUnsupportedKernel)
}

// Species is the species arity a kernel is compiled for.
type Species int

const (
	SingleSpecies Species = iota
	TwoSpecies
)

func (s Species) String() string {
	if s == TwoSpecies {
		return "two-species"
	}
	return "single-species"
}

// SpeciesFor returns the arity matching a set of distinct element codes.
func SpeciesFor(elements []float64) Species {
	if len(elements) > 1 {
		return TwoSpecies
	}
	return SingleSpecies
}

// Key identifies a compiled kernel artifact.
type Key struct {
	Kind    Kind
	Species Species
}

func (k Key) String() string { return k.Kind.String() + "/" + k.Species.String() }
