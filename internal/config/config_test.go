package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestValidate checks defaults and format validations for Config.
func TestValidate(t *testing.T) {
	t.Parallel()

	require.Error(t, Validate(nil))

	// Empty settings get defaults.
	cfg := new(Config)
	require.NoError(t, Validate(cfg))
	require.Equal(t, DefaultLogLevel, cfg.LogLevel)
	require.Equal(t, DefaultSaveDelay, cfg.SaveDelay)
	require.Equal(t, DefaultFTPTimeout, cfg.FTPTimeout)
	require.Equal(t, DefaultSigningPolicy, cfg.SigningPolicy)

	// Bad level.
	cfg = &Config{LogLevel: "loud"}
	require.ErrorIs(t, Validate(cfg), errUnknownLogLevel)

	// Negative delay.
	cfg = &Config{SaveDelay: -time.Second}
	require.ErrorIs(t, Validate(cfg), errNegativeDuration)
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")

	cfg := &Config{
		LogLevel:      "debug",
		SaveDelay:     2 * time.Second,
		FTPTimeout:    10 * time.Second,
		SigningPolicy: "everything",
		LastProject:   "/home/me/projects/demo/demo.extpkg",
	}

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, loaded)

	_, err = os.Stat(path)
	require.NoError(t, err)
}

// TestLoad_MissingFileGivesDefaults verifies the first run works without a settings file.
func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

// TestLoad_EnvironmentOverride checks EXTPKG_* variables win over the file.
func TestLoad_EnvironmentOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, Save(path, &Config{LogLevel: "info"}))

	t.Setenv("EXTPKG_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "warn", cfg.LogLevel)
}
