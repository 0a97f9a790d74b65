package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 50*time.Millisecond, cfg.Bridge.PollInterval)
	assert.Equal(t, 100, cfg.Bridge.MaxAttempts)
	assert.False(t, cfg.Bridge.Unstable)
	assert.Equal(t, 64*1024, cfg.Staging.ChunkSize)
	assert.Equal(t, 4096, cfg.Sniff.SampleSize)
	assert.InDelta(t, 0.30, cfg.Sniff.HighByteRatio, 1e-9)
	assert.Equal(t, "callback", cfg.Host.Convention)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SANDBOXFS_POLL_INTERVAL", "10ms")
	t.Setenv("SANDBOXFS_MAX_ATTEMPTS", "7")
	t.Setenv("SANDBOXFS_UNSTABLE_HOST", "true")
	t.Setenv("SANDBOXFS_HOST_CONVENTION", "promise")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 10*time.Millisecond, cfg.Bridge.PollInterval)
	assert.Equal(t, 7, cfg.Bridge.MaxAttempts)
	assert.True(t, cfg.Bridge.Unstable)
	assert.Equal(t, "promise", cfg.Host.Convention)

	// Untouched values keep their defaults.
	assert.Equal(t, 3, cfg.Bridge.TransientRetries)
	assert.Equal(t, int64(256*1024), cfg.Target.LargeTextThreshold)
}

func TestLoadOrDefaultBadEnv(t *testing.T) {
	t.Setenv("SANDBOXFS_MAX_ATTEMPTS", "not-a-number")

	cfg := LoadOrDefault()
	assert.Equal(t, 100, cfg.Bridge.MaxAttempts)
}
