package core

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Settings holds the kernel hyperparameters and the execution knobs shared by
// the models and the sampling strategies.
type Settings struct {
	Sigma2B float64 `yaml:"sigma_2b"` // lengthscale of the 2-body kernels
	Sigma3B float64 `yaml:"sigma_3b"` // lengthscale of the 3-body kernels
	SigmaMB float64 `yaml:"sigma_mb"` // lengthscale of the many-body kernels
	Noise   float64 `yaml:"noise"`    // regularization added as noise² to the Gram diagonal
	RCut    float64 `yaml:"r_cut"`    // cutoff radius
	Theta   float64 `yaml:"theta"`    // decay rate of the cutoff function
	NCores  int     `yaml:"ncores"`   // workers used for Gram matrix assembly
	Pool    string  `yaml:"pool"`     // worker pool backend: "serial" or "goroutine"
}

// DefaultSettings returns the hyperparameters used when nothing else is configured.
func DefaultSettings() Settings {
	return Settings{
		Sigma2B: 0.05,
		Sigma3B: 0.1,
		SigmaMB: 0.2,
		Noise:   0.001,
		RCut:    8.5,
		Theta:   0.5,
		NCores:  1,
		Pool:    "serial",
	}
}

// LoadSettings reads a YAML settings file on top of DefaultSettings.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()
	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("read settings %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parse settings %s: %w", path, err)
	}
	return s, s.Validate()
}

// ApplyEnv overrides the execution knobs from MFF_NCORES and MFF_POOL.
func (s *Settings) ApplyEnv() {
	if env := os.Getenv("MFF_NCORES"); env != "" {
		if n, err := strconv.Atoi(env); err == nil && n > 0 {
			s.NCores = n
			log.Info().Msgf("Using %d cores from MFF_NCORES", n)
		} else {
			log.Warn().Msgf("Failed to parse MFF_NCORES value: %s", env)
		}
	}
	if env := strings.TrimSpace(os.Getenv("MFF_POOL")); env != "" {
		s.Pool = strings.ToLower(env)
	}
}

// Validate checks that every hyperparameter is usable.
func (s Settings) Validate() error {
	for name, v := range map[string]float64{
		"sigma_2b": s.Sigma2B,
		"sigma_3b": s.Sigma3B,
		"sigma_mb": s.SigmaMB,
		"r_cut":    s.RCut,
	} {
		if !(v > 0) {
			return fmt.Errorf("%s must be positive, got %v: %w", name, v, ErrInvalidParameter)
		}
	}
	if s.Noise < 0 {
		return fmt.Errorf("noise must be non-negative, got %v: %w", s.Noise, ErrInvalidParameter)
	}
	if s.Theta < 0 {
		return fmt.Errorf("theta must be non-negative, got %v: %w", s.Theta, ErrInvalidParameter)
	}
	if s.NCores < 1 {
		return fmt.Errorf("ncores must be at least 1, got %d: %w", s.NCores, ErrInvalidParameter)
	}
	return nil
}
