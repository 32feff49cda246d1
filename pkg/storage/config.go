package storage

import "time"

// JournalMode mirrors SQLite's journal_mode pragma values.
type JournalMode string

const (
	JournalDelete   JournalMode = "DELETE"
	JournalTruncate JournalMode = "TRUNCATE"
	JournalPersist  JournalMode = "PERSIST"
	JournalMemory   JournalMode = "MEMORY"
	JournalWAL      JournalMode = "WAL"
	JournalOff      JournalMode = "OFF"
)

// Synchronous mirrors SQLite's synchronous pragma values.
type Synchronous string

const (
	SyncOff    Synchronous = "OFF"
	SyncNormal Synchronous = "NORMAL"
	SyncFull   Synchronous = "FULL"
	SyncExtra  Synchronous = "EXTRA"
)

// TempStore mirrors SQLite's temp_store pragma values.
type TempStore string

const (
	TempDefault TempStore = "DEFAULT"
	TempFile    TempStore = "FILE"
	TempMemory  TempStore = "MEMORY"
)

// BucketConfig is the effective, per-bucket configuration snapshot derived
// from service-level defaults overridden by per-bucket YAML overrides at
// startup.
type BucketConfig struct {
	ReadOnly    bool
	JournalMode JournalMode
	Synchronous Synchronous
	TempStore   TempStore
	CacheSize   int64 // pages, or KiB when negative per SQLite convention

	// PoolSize bounds the number of concurrent database handles held open
	// for this bucket.
	PoolSize int

	// MultipartTTL is how long an abandoned multipart upload survives
	// before garbage collection reclaims it.
	MultipartTTL time.Duration
}

// DefaultBucketConfig returns the service-level defaults applied before any
// per-bucket override.
func DefaultBucketConfig() BucketConfig {
	return BucketConfig{
		ReadOnly:     false,
		JournalMode:  JournalWAL,
		Synchronous:  SyncNormal,
		TempStore:    TempMemory,
		CacheSize:    -2000, // ~2000 KiB, SQLite's negative-cache_size convention
		PoolSize:     16,
		MultipartTTL: 7 * 24 * time.Hour,
	}
}

// Merge returns a copy of base with every non-zero field of override applied
// on top, implementing the "service defaults overridden by per-bucket
// overrides" rule.
func (base BucketConfig) Merge(override BucketConfig) BucketConfig {
	merged := base
	if override.ReadOnly {
		merged.ReadOnly = true
	}
	if override.JournalMode != "" {
		merged.JournalMode = override.JournalMode
	}
	if override.Synchronous != "" {
		merged.Synchronous = override.Synchronous
	}
	if override.TempStore != "" {
		merged.TempStore = override.TempStore
	}
	if override.CacheSize != 0 {
		merged.CacheSize = override.CacheSize
	}
	if override.PoolSize != 0 {
		merged.PoolSize = override.PoolSize
	}
	if override.MultipartTTL != 0 {
		merged.MultipartTTL = override.MultipartTTL
	}
	return merged
}
