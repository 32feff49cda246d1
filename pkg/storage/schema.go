package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/glebarez/go-sqlite" // registers the "sqlite" driver

	"github.com/s3lite/s3lite/internal/logger"
)

// sqliteDriverName is the database/sql driver name registered by
// glebarez/go-sqlite, a pure-Go (cgo-free) SQLite implementation.
const sqliteDriverName = "sqlite"

// schema is executed against a freshly opened database to create every
// table a bucket database needs. Statement order matters: child
// tables declare their foreign keys against already-defined parents.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS data (
		key   TEXT PRIMARY KEY,
		value BLOB NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS metadata (
		key           TEXT PRIMARY KEY,
		size          INTEGER NOT NULL,
		metadata      TEXT,
		last_modified TEXT NOT NULL,
		md5           TEXT,
		FOREIGN KEY (key) REFERENCES data(key) ON DELETE CASCADE
	) WITHOUT ROWID`,
	`CREATE TABLE IF NOT EXISTS multipart_upload (
		upload_id     BLOB PRIMARY KEY,
		bucket        TEXT NOT NULL,
		key           TEXT NOT NULL,
		last_modified TEXT NOT NULL,
		access_key    TEXT,
		UNIQUE (upload_id, bucket, key)
	)`,
	`CREATE TABLE IF NOT EXISTS multipart_upload_part (
		upload_id     BLOB NOT NULL,
		part_number   INTEGER NOT NULL,
		value         BLOB NOT NULL,
		size          INTEGER NOT NULL,
		md5           TEXT NOT NULL,
		last_modified TEXT NOT NULL,
		PRIMARY KEY (upload_id, part_number),
		FOREIGN KEY (upload_id) REFERENCES multipart_upload(upload_id) ON DELETE CASCADE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_multipart_upload_bucket_key ON multipart_upload(bucket, key)`,
	`CREATE INDEX IF NOT EXISTS idx_multipart_upload_last_modified ON multipart_upload(last_modified)`,
}

// openDatabase opens path with the driver, applies the required pragma
// sequence, creates the schema, and sanity-checks foreign key enforcement.
// The returned *sql.DB is a single-connection handle: the Registry composes
// several of these per bucket.
func openDatabase(ctx context.Context, path string, cfg BucketConfig) (*sql.DB, error) {
	db, err := sql.Open(sqliteDriverName, path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(ctx, db, cfg); err != nil {
		db.Close()
		return nil, err
	}
	if err := createSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	if err := verifyForeignKeysEnabled(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// applyPragmas applies, strictly in this order: journal_mode, synchronous,
// temp_store, cache_size, foreign_keys=ON, and finally query_only when the
// bucket is configured read-only.
func applyPragmas(ctx context.Context, db *sql.DB, cfg BucketConfig) error {
	stmts := []string{
		fmt.Sprintf("PRAGMA journal_mode = %s", string(cfg.JournalMode)),
		fmt.Sprintf("PRAGMA synchronous = %s", string(cfg.Synchronous)),
		fmt.Sprintf("PRAGMA temp_store = %s", string(cfg.TempStore)),
		fmt.Sprintf("PRAGMA cache_size = %d", cfg.CacheSize),
		"PRAGMA foreign_keys = ON",
	}
	if cfg.ReadOnly {
		stmts = append(stmts, "PRAGMA query_only = ON")
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return newErr(ErrInternal, "", "", "applying pragma %q: %v", stmt, err)
		}
	}
	return nil
}

func createSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return newErr(ErrInternal, "", "", "creating schema: %v", err)
		}
	}
	return nil
}

// verifyForeignKeysEnabled fails with InternalError if foreign_keys did
// not actually take effect after being requested.
func verifyForeignKeysEnabled(ctx context.Context, db *sql.DB) error {
	var enabled int
	if err := db.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&enabled); err != nil {
		return newErr(ErrInternal, "", "", "reading foreign_keys pragma: %v", err)
	}
	if enabled != 1 {
		return newErr(ErrInternal, "", "", "foreign key enforcement did not activate")
	}
	return nil
}

// logPragmaSnapshot emits the effective configuration at debug level,
// useful when diagnosing a misbehaving bucket override.
func logPragmaSnapshot(ctx context.Context, bucket string, cfg BucketConfig) {
	logger.DebugCtx(ctx, "applied bucket pragma snapshot",
		logger.Bucket(bucket),
		"read_only", cfg.ReadOnly,
		"journal_mode", string(cfg.JournalMode),
		"synchronous", string(cfg.Synchronous),
		"temp_store", string(cfg.TempStore),
		"cache_size", cfg.CacheSize,
	)
}
