package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// sidecarSuffixes are the auxiliary files SQLite may create alongside a
// bucket's primary database file.
var sidecarSuffixes = []string{"-wal", "-shm", "-journal"}

// Registry maps bucket name to a bounded pool of database handles. It is
// the single place that knows the on-disk location of every bucket.
type Registry struct {
	root       string
	defaultCfg BucketConfig

	mu        sync.RWMutex
	pools     map[string]*pool
	overrides map[string]BucketConfig
	createdAt map[string]time.Time
}

// NewRegistry constructs a Registry rooted at root, applying defaultCfg to
// any bucket without an explicit override.
func NewRegistry(root string, defaultCfg BucketConfig) *Registry {
	return &Registry{
		root:       root,
		defaultCfg: defaultCfg,
		pools:      make(map[string]*pool),
		overrides:  make(map[string]BucketConfig),
		createdAt:  make(map[string]time.Time),
	}
}

// bucketPath returns the primary database file path for a bucket name.
func (r *Registry) bucketPath(bucket string) string {
	return filepath.Join(r.root, bucket+".sqlite3")
}

// SetOverride records a per-bucket configuration override to be merged
// over the service default (the `buckets:` config map). It must be
// called before Discover/acquire for the bucket in question to take
// full effect on first open.
func (r *Registry) SetOverride(bucket string, override BucketConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overrides[bucket] = override
}

// effectiveConfig merges the service default with any recorded override.
func (r *Registry) effectiveConfig(bucket string) BucketConfig {
	r.mu.RLock()
	override, ok := r.overrides[bucket]
	r.mu.RUnlock()
	if !ok {
		return r.defaultCfg
	}
	return r.defaultCfg.Merge(override)
}

// Discover scans root for existing `<bucket>.sqlite3` files and registers
// a pool for each, so that buckets created by a previous process run are
// immediately usable. It does not open any connections eagerly.
func (r *Registry) Discover() error {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("scanning bucket root %s: %w", r.root, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		const suffix = ".sqlite3"
		if !strings.HasSuffix(name, suffix) {
			continue
		}
		bucket := strings.TrimSuffix(name, suffix)
		r.register(bucket)
		if info, err := entry.Info(); err == nil {
			r.mu.Lock()
			r.createdAt[bucket] = info.ModTime()
			r.mu.Unlock()
		}
	}
	return nil
}

func (r *Registry) register(bucket string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.pools[bucket]; exists {
		return
	}
	r.pools[bucket] = newPool(r.bucketPath(bucket), r.effectiveConfigLocked(bucket))
}

func (r *Registry) effectiveConfigLocked(bucket string) BucketConfig {
	if override, ok := r.overrides[bucket]; ok {
		return r.defaultCfg.Merge(override)
	}
	return r.defaultCfg
}

// exists reports whether bucket is currently registered.
func (r *Registry) exists(bucket string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.pools[bucket]
	return ok
}

// acquire borrows a handle for bucket, returning ErrNoSuchBucket if the
// bucket is not registered.
func (r *Registry) acquire(ctx context.Context, bucket string) (*sql.DB, error) {
	r.mu.RLock()
	p, ok := r.pools[bucket]
	r.mu.RUnlock()
	if !ok {
		return nil, newErr(ErrNoSuchBucket, bucket, "", "bucket %q is not registered", bucket)
	}
	return p.acquire(ctx)
}

// release returns a previously acquired handle to bucket's pool.
func (r *Registry) release(bucket string, db *sql.DB) {
	r.mu.RLock()
	p, ok := r.pools[bucket]
	r.mu.RUnlock()
	if !ok {
		db.Close()
		return
	}
	p.release(db)
}

// discard closes a handle believed corrupt instead of returning it to
// bucket's pool.
func (r *Registry) discard(bucket string, db *sql.DB) {
	r.mu.RLock()
	p, ok := r.pools[bucket]
	r.mu.RUnlock()
	if !ok {
		db.Close()
		return
	}
	p.discard(db)
}

// create creates a brand-new bucket database file, applies the schema,
// and registers its pool, failing with ErrBucketAlreadyExists if the file
// or any sidecar already exists.
func (r *Registry) create(ctx context.Context, bucket string, override *BucketConfig) error {
	path := r.bucketPath(bucket)
	if _, err := os.Stat(path); err == nil {
		return newErr(ErrBucketAlreadyExists, bucket, "", "bucket %q already exists", bucket)
	}
	for _, suffix := range sidecarSuffixes {
		if _, err := os.Stat(path + suffix); err == nil {
			return newErr(ErrBucketAlreadyExists, bucket, "", "sidecar file %s%s already exists", bucket, suffix)
		}
	}

	if override != nil {
		r.SetOverride(bucket, *override)
	}
	cfg := r.effectiveConfig(bucket)

	db, err := openDatabase(ctx, path, cfg)
	if err != nil {
		return err
	}
	db.Close()

	r.mu.Lock()
	r.pools[bucket] = newPool(path, cfg)
	r.createdAt[bucket] = time.Now().UTC().Truncate(time.Second)
	r.mu.Unlock()
	return nil
}

// drop closes every handle for bucket and removes its database file and
// sidecars. Callers must have already verified the bucket's data table
// is empty.
func (r *Registry) drop(bucket string) error {
	r.mu.Lock()
	p, ok := r.pools[bucket]
	if ok {
		delete(r.pools, bucket)
		delete(r.createdAt, bucket)
		delete(r.overrides, bucket)
	}
	r.mu.Unlock()
	if !ok {
		return newErr(ErrNoSuchBucket, bucket, "", "bucket %q is not registered", bucket)
	}
	if err := p.closeAll(); err != nil {
		return err
	}

	path := r.bucketPath(bucket)
	paths := append([]string{path}, withSuffixes(path, sidecarSuffixes)...)
	for _, f := range paths {
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			return newErr(ErrInternal, bucket, "", "removing %s: %v", f, err)
		}
	}
	return nil
}

// list returns every registered bucket with its recorded creation time.
func (r *Registry) list() []BucketInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	infos := make([]BucketInfo, 0, len(r.pools))
	for bucket := range r.pools {
		infos = append(infos, BucketInfo{Name: bucket, CreatedAt: r.createdAt[bucket]})
	}
	return infos
}

// closeAll drains every pool, for use during graceful shutdown.
func (r *Registry) closeAll() error {
	r.mu.RLock()
	pools := make(map[string]*pool, len(r.pools))
	for k, v := range r.pools {
		pools[k] = v
	}
	r.mu.RUnlock()

	var firstErr error
	for bucket, p := range pools {
		if err := p.closeAll(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing pool for %s: %w", bucket, err)
		}
	}
	return firstErr
}

func withSuffixes(path string, suffixes []string) []string {
	out := make([]string, len(suffixes))
	for i, s := range suffixes {
		out[i] = path + s
	}
	return out
}
