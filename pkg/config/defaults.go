package config

import (
	"strings"
	"time"
)

const (
	defaultPort        = 8014
	defaultPoolSize    = 16
	defaultConcurrency = 16
	defaultMetricsPort      = 9090
	defaultControlPlanePort = 9091
)

// DefaultConfig returns the full service default configuration, used when no
// config file is found.
func DefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills in any unspecified configuration fields with sensible
// defaults. Zero values (0, "", false) are replaced; explicit values are
// preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyStorageDefaults(&cfg.Storage)
	applyMetricsDefaults(&cfg.Metrics)
	applyControlPlaneDefaults(&cfg.ControlPlane)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.ConcurrencyLimit == 0 {
		cfg.ConcurrencyLimit = defaultConcurrency
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

func applyStorageDefaults(cfg *StorageConfig) {
	if cfg.Root == "" {
		cfg.Root = "."
	}
	if cfg.JournalMode == "" {
		cfg.JournalMode = "WAL"
	}
	if cfg.Synchronous == "" {
		cfg.Synchronous = "NORMAL"
	}
	if cfg.TempStore == "" {
		cfg.TempStore = "MEMORY"
	}
	if cfg.CacheSize == 0 {
		cfg.CacheSize = -2000
	}
	if cfg.PoolSize == 0 {
		cfg.PoolSize = defaultPoolSize
	}
	if cfg.MultipartTTL == 0 {
		cfg.MultipartTTL = 7 * 24 * time.Hour
	}
	if cfg.MultipartGCInterval == 0 {
		cfg.MultipartGCInterval = 15 * time.Minute
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Port == 0 {
		cfg.Port = defaultMetricsPort
	}
}

func applyControlPlaneDefaults(cfg *ControlPlaneConfig) {
	if cfg.Port == 0 {
		cfg.Port = defaultControlPlanePort
	}
	if cfg.DatabaseDriver == "" {
		cfg.DatabaseDriver = "sqlite"
	}
	if cfg.DatabaseDSN == "" {
		cfg.DatabaseDSN = "controlplane.sqlite3"
	}
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
}
