package config

import "github.com/s3lite/s3lite/pkg/storage"

// BucketConfig translates the service-level storage configuration into the
// storage package's BucketConfig, applied to every bucket without an
// explicit override.
func (c StorageConfig) BucketConfig() storage.BucketConfig {
	return storage.BucketConfig{
		ReadOnly:     c.ReadOnly,
		JournalMode:  storage.JournalMode(c.JournalMode),
		Synchronous:  storage.Synchronous(c.Synchronous),
		TempStore:    storage.TempStore(c.TempStore),
		CacheSize:    c.CacheSize,
		PoolSize:     c.PoolSize,
		MultipartTTL: c.MultipartTTL,
	}
}

// Override translates a BucketOverride into the storage package's
// BucketConfig, leaving zero-value fields for Merge to skip.
func (o BucketOverride) Override() storage.BucketConfig {
	cfg := storage.BucketConfig{
		JournalMode:  storage.JournalMode(o.JournalMode),
		Synchronous:  storage.Synchronous(o.Synchronous),
		TempStore:    storage.TempStore(o.TempStore),
		CacheSize:    o.CacheSize,
		PoolSize:     o.PoolSize,
		MultipartTTL: o.MultipartTTL,
	}
	if o.ReadOnly != nil {
		cfg.ReadOnly = *o.ReadOnly
	}
	return cfg
}

// EngineConfig builds a storage.EngineConfig from c, ready to pass to
// storage.NewEngine. readOnly lets the caller wire a runtime-mutable
// service-level read-only flag (e.g. toggled by the control plane); pass nil
// to use the static c.Storage.ReadOnly value for the lifetime of the engine.
func (c *Config) EngineConfig(metrics storage.Metrics, readOnly func() bool) storage.EngineConfig {
	if readOnly == nil {
		ro := c.Storage.ReadOnly
		readOnly = func() bool { return ro }
	}
	overrides := make(map[string]storage.BucketConfig, len(c.Storage.Buckets))
	for bucket, override := range c.Storage.Buckets {
		overrides[bucket] = override.Override()
	}
	return storage.EngineConfig{
		Root:             c.Storage.Root,
		Default:          c.Storage.BucketConfig(),
		ConcurrencyLimit: c.Server.ConcurrencyLimit,
		ReadOnly:         readOnly,
		Metrics:          metrics,
		Overrides:        overrides,
	}
}
