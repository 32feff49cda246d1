package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestApplyDefaultsFillsZeroValues(t *testing.T) {
	var cfg Config
	ApplyDefaults(&cfg)

	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Logging.Output)

	assert.Equal(t, defaultPort, cfg.Server.Port)
	assert.Equal(t, defaultConcurrency, cfg.Server.ConcurrencyLimit)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)

	assert.Equal(t, ".", cfg.Storage.Root)
	assert.Equal(t, "WAL", cfg.Storage.JournalMode)
	assert.Equal(t, "NORMAL", cfg.Storage.Synchronous)
	assert.Equal(t, "MEMORY", cfg.Storage.TempStore)
	assert.EqualValues(t, -2000, cfg.Storage.CacheSize)
	assert.Equal(t, defaultPoolSize, cfg.Storage.PoolSize)
	assert.Equal(t, 7*24*time.Hour, cfg.Storage.MultipartTTL)
	assert.Equal(t, 15*time.Minute, cfg.Storage.MultipartGCInterval)

	assert.Equal(t, defaultMetricsPort, cfg.Metrics.Port)
	assert.Equal(t, "sqlite", cfg.ControlPlane.DatabaseDriver)
	assert.Equal(t, 24*time.Hour, cfg.ControlPlane.TokenTTL)
}

func TestApplyDefaultsPreservesExplicitValues(t *testing.T) {
	cfg := Config{}
	cfg.Server.Port = 9999
	cfg.Storage.JournalMode = "DELETE"
	cfg.Logging.Level = "debug"

	ApplyDefaults(&cfg)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "DELETE", cfg.Storage.JournalMode)
	assert.Equal(t, "DEBUG", cfg.Logging.Level)
}

func TestDefaultConfigIsFullyPopulated(t *testing.T) {
	cfg := DefaultConfig()
	assert.NotZero(t, cfg.Server.Port)
	assert.NotEmpty(t, cfg.Storage.Root)
	assert.NotEmpty(t, cfg.Logging.Level)
}
