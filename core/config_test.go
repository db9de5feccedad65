package core

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultSettingsValid(t *testing.T) {
	require.NoError(t, DefaultSettings().Validate())
}

func TestLoadSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	body := []byte("sigma_2b: 0.3\nr_cut: 5.0\nncores: 4\npool: goroutine\n")
	require.NoError(t, os.WriteFile(path, body, 0o644))

	s, err := LoadSettings(path)
	require.NoError(t, err)
	require.Equal(t, 0.3, s.Sigma2B)
	require.Equal(t, 5.0, s.RCut)
	require.Equal(t, 4, s.NCores)
	require.Equal(t, "goroutine", s.Pool)
	// untouched keys keep their defaults
	require.Equal(t, DefaultSettings().Sigma3B, s.Sigma3B)
	require.Equal(t, DefaultSettings().Noise, s.Noise)
}

func TestLoadSettingsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("r_cut: -1\n"), 0o644))

	_, err := LoadSettings(path)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInvalidParameter))
}

func TestLoadSettingsMissingFile(t *testing.T) {
	_, err := LoadSettings(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("MFF_NCORES", "3")
	t.Setenv("MFF_POOL", " Goroutine ")

	s := DefaultSettings()
	s.ApplyEnv()
	require.Equal(t, 3, s.NCores)
	require.Equal(t, "goroutine", s.Pool)
}

func TestApplyEnvIgnoresGarbage(t *testing.T) {
	t.Setenv("MFF_NCORES", "many")

	s := DefaultSettings()
	s.ApplyEnv()
	require.Equal(t, 1, s.NCores)
}
