package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
)

// pool is a bounded set of *sql.DB handles against a single bucket file.
// SQLite serializes writers regardless of how many connections are open
// against the same file, but holding a handful of them lets concurrent
// readers and one writer make progress without blocking on a single
// shared connection.
type pool struct {
	path string
	cfg  BucketConfig

	mu      sync.Mutex
	idle    []*sql.DB
	inUse   int
	size    int
	closed  bool
	waiters []chan *sql.DB
}

// newPool constructs a pool without eagerly opening connections; handles
// are created lazily on first acquire up to cfg.PoolSize.
func newPool(path string, cfg BucketConfig) *pool {
	size := cfg.PoolSize
	if size <= 0 {
		size = DefaultBucketConfig().PoolSize
	}
	return &pool{path: path, cfg: cfg, size: size}
}

// acquire returns an idle handle, opening a fresh one if under capacity,
// or blocks until one is released or ctx is done.
func (p *pool) acquire(ctx context.Context) (*sql.DB, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, newErr(ErrInternal, "", "", "pool for %s is closed", p.path)
	}
	if n := len(p.idle); n > 0 {
		db := p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.inUse++
		p.mu.Unlock()
		return db, nil
	}
	if p.inUse < p.size {
		p.inUse++
		p.mu.Unlock()
		db, err := openDatabase(ctx, p.path, p.cfg)
		if err != nil {
			p.mu.Lock()
			p.inUse--
			p.mu.Unlock()
			return nil, err
		}
		return db, nil
	}
	wait := make(chan *sql.DB, 1)
	p.waiters = append(p.waiters, wait)
	p.mu.Unlock()

	select {
	case db := <-wait:
		if db == nil {
			return nil, newErr(ErrInternal, "", "", "pool for %s is closed", p.path)
		}
		return db, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// release returns db to the idle set, handing it directly to the oldest
// waiter if one is queued (FIFO, matching the admission semaphore's
// wake-up discipline).
func (p *pool) release(db *sql.DB) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.waiters) > 0 {
		w := p.waiters[0]
		p.waiters = p.waiters[1:]
		w <- db
		return
	}
	if p.closed {
		db.Close()
		p.inUse--
		return
	}
	p.idle = append(p.idle, db)
	p.inUse--
}

// discard closes a handle believed corrupt or disconnected instead of
// returning it to the idle set, discarded and replaced on any error
// signalling corruption or a lost connection.
func (p *pool) discard(db *sql.DB) {
	db.Close()
	p.mu.Lock()
	p.inUse--
	p.mu.Unlock()
}

// closeAll closes every idle handle and marks the pool closed; handles
// still checked out are closed as they are released. Used by DeleteBucket
// and graceful shutdown to drain a bucket before removing its files.
func (p *pool) closeAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	var firstErr error
	for _, db := range p.idle {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing handle for %s: %w", p.path, err)
		}
	}
	p.idle = nil
	for _, w := range p.waiters {
		close(w)
	}
	p.waiters = nil
	return firstErr
}
