package kernels

import (
	"fmt"

	"github.com/patrikhermansson/mff/core"
)

// Theta holds the kernel hyperparameters.
type Theta struct {
	Sigma  float64 // lengthscale
	Decay  float64 // cutoff decay rate
	Cutoff float64 // cutoff radius
}

// Validate checks that the lengthscale and cutoff are positive and the decay
// rate is not negative.
func (t Theta) Validate() error {
	if !(t.Sigma > 0) || !(t.Cutoff > 0) || t.Decay < 0 {
		return fmt.Errorf("invalid kernel hyperparameters %+v: %w", t, core.ErrInvalidParameter)
	}
	return nil
}
