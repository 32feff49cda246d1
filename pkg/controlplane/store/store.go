// Package store persists control-plane state (SigV4 credential records and
// durable per-bucket overrides) via GORM, over either SQLite or Postgres.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/s3lite/s3lite/pkg/controlplane/models"
)

// ErrCredentialNotFound is returned when no Credential exists for an access key.
var ErrCredentialNotFound = errors.New("controlplane: credential not found")

// ErrOverrideNotFound is returned when no BucketOverride exists for a bucket.
var ErrOverrideNotFound = errors.New("controlplane: bucket override not found")

// Driver selects the GORM backend.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Store persists control-plane records over GORM.
type Store struct {
	db *gorm.DB
}

// Open connects to the configured backend and runs auto-migration.
func Open(driver Driver, dsn string) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverSQLite, "":
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create control plane database directory: %w", err)
			}
		}
		dialector = sqlite.Open(dsn + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported control plane database driver: %s", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to control plane database: %w", err)
	}
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		return nil, fmt.Errorf("failed to migrate control plane database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CreateCredential inserts a new credential record.
func (s *Store) CreateCredential(ctx context.Context, c *models.Credential) error {
	return s.db.WithContext(ctx).Create(c).Error
}

// GetCredential looks up a credential by access key.
func (s *Store) GetCredential(ctx context.Context, accessKey string) (*models.Credential, error) {
	var c models.Credential
	err := s.db.WithContext(ctx).First(&c, "access_key = ?", accessKey).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCredentialNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCredentials returns every credential record, ordered by access key.
func (s *Store) ListCredentials(ctx context.Context) ([]models.Credential, error) {
	var out []models.Credential
	err := s.db.WithContext(ctx).Order("access_key").Find(&out).Error
	return out, err
}

// DeleteCredential removes a credential by access key.
func (s *Store) DeleteCredential(ctx context.Context, accessKey string) error {
	res := s.db.WithContext(ctx).Delete(&models.Credential{}, "access_key = ?", accessKey)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrCredentialNotFound
	}
	return nil
}

// SetDisabled toggles whether a credential may authenticate requests.
func (s *Store) SetDisabled(ctx context.Context, accessKey string, disabled bool) error {
	res := s.db.WithContext(ctx).Model(&models.Credential{}).Where("access_key = ?", accessKey).Update("disabled", disabled)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrCredentialNotFound
	}
	return nil
}

// UpsertBucketOverride creates or replaces a bucket's durable override record.
func (s *Store) UpsertBucketOverride(ctx context.Context, o *models.BucketOverride) error {
	return s.db.WithContext(ctx).Save(o).Error
}

// GetBucketOverride looks up a bucket's durable override, if any.
func (s *Store) GetBucketOverride(ctx context.Context, bucket string) (*models.BucketOverride, error) {
	var o models.BucketOverride
	err := s.db.WithContext(ctx).First(&o, "bucket = ?", bucket).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOverrideNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// ListBucketOverrides returns every durable bucket override, ordered by bucket name.
func (s *Store) ListBucketOverrides(ctx context.Context) ([]models.BucketOverride, error) {
	var out []models.BucketOverride
	err := s.db.WithContext(ctx).Order("bucket").Find(&out).Error
	return out, err
}

// DeleteBucketOverride removes a bucket's durable override, reverting it to
// the YAML config's storage.buckets entry (or the service defaults).
func (s *Store) DeleteBucketOverride(ctx context.Context, bucket string) error {
	res := s.db.WithContext(ctx).Delete(&models.BucketOverride{}, "bucket = ?", bucket)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrOverrideNotFound
	}
	return nil
}
