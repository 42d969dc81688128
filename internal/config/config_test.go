package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "https://arweave.net", cfg.Gateway)
	assert.Equal(t, 10, cfg.Concurrency)
	assert.Equal(t, 3*time.Minute, cfg.Timeout)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("WEAVEGET_GATEWAY", "https://gw.example.com")
	t.Setenv("WEAVEGET_CONCURRENCY", "4")
	t.Setenv("WEAVEGET_TIMEOUT", "30s")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "https://gw.example.com", cfg.Gateway)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
}

func TestFromEnvRejectsZeroConcurrency(t *testing.T) {
	t.Setenv("WEAVEGET_CONCURRENCY", "0")
	_, err := FromEnv()
	assert.Error(t, err)
}
