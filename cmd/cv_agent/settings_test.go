package main

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/cv-refiner/internal/config"
)

func TestFlagOverrides_OnlyChangedFlags(t *testing.T) {
	var overrides flagOverrides
	cmd := &cobra.Command{Use: "test"}
	overrides.registerServer(cmd)
	require.NoError(t, cmd.Flags().Parse([]string{"--port", "9191", "--log-level", "debug"}))

	cfg := config.Default()
	cfg.DatabaseURL = "postgres://from-env"
	cfg.APIKey = "env-key"
	overrides.apply(cmd, &cfg)

	assert.Equal(t, 9191, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "postgres://from-env", cfg.DatabaseURL, "unset flags keep configured values")
	assert.Equal(t, "env-key", cfg.APIKey)
}

func TestFlagOverrides_WithoutServerFlags(t *testing.T) {
	var overrides flagOverrides
	cmd := &cobra.Command{Use: "test"}
	overrides.register(cmd)
	require.NoError(t, cmd.Flags().Parse([]string{"--api-key", "flag-key"}))

	cfg := config.Default()
	overrides.apply(cmd, &cfg)

	assert.Equal(t, "flag-key", cfg.APIKey)
	assert.Equal(t, 8080, cfg.Port)
}

func TestSessionConfig(t *testing.T) {
	cfg := config.Default()
	cfg.SessionTTL = config.Duration(30 * time.Minute)
	cfg.HighlightDuration = config.Duration(2 * time.Second)
	cfg.HeaderHighlightDuration = config.Duration(4 * time.Second)
	cfg.HighlightDebounce = config.Duration(100 * time.Millisecond)

	got := sessionConfig(&cfg)

	assert.Equal(t, 30*time.Minute, got.TTL)
	assert.Equal(t, 5*time.Minute, got.CleanupInterval, "sweeps at least six times per TTL")
	assert.Equal(t, 2*time.Second, got.Highlight.SectionDuration)
	assert.Equal(t, 4*time.Second, got.Highlight.HeaderDuration)
	assert.Equal(t, 100*time.Millisecond, got.Highlight.Debounce)
}

func TestSessionConfig_DefaultTTLKeepsSweepInterval(t *testing.T) {
	cfg := config.Default()

	got := sessionConfig(&cfg)

	assert.Equal(t, time.Hour, got.TTL)
	assert.Equal(t, 10*time.Minute, got.CleanupInterval)
}

func TestServerConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Port = 9000
	cfg.MaxUploadBytes = 1 << 20

	got := serverConfig(&cfg)

	assert.Equal(t, 9000, got.Port)
	assert.Equal(t, int64(1<<20), got.MaxUploadBytes)
}

func TestNewLogger(t *testing.T) {
	cfg := config.Default()
	logger, err := newLogger(&cfg)
	require.NoError(t, err)
	assert.NotNil(t, logger)

	cfg.LogLevel = "chatty"
	_, err = newLogger(&cfg)
	assert.Error(t, err)
}
