// Package models contains the GORM record types persisted by the bucket-admin
// control plane: the set of recognized SigV4 credential pairs and the
// durable per-bucket configuration overrides an operator has applied without
// editing the YAML config file.
package models

import "time"

// AllModels returns every GORM model for auto-migration.
func AllModels() []any {
	return []any{
		&Credential{},
		&BucketOverride{},
	}
}

// Credential is a recognized SigV4 access-key/secret-key pair. SecretKey is
// stored as a bcrypt hash; the plaintext is only ever returned once, at
// creation time.
type Credential struct {
	AccessKey    string `gorm:"primaryKey;size:128" json:"access_key"`
	SecretHash   string `gorm:"size:255;not null" json:"-"`
	Label        string `gorm:"size:255" json:"label,omitempty"`
	Disabled     bool   `gorm:"not null;default:false" json:"disabled"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for Credential.
func (Credential) TableName() string {
	return "credentials"
}

// BucketOverride durably records an operator-applied override of a bucket's
// storage pragmas or read-only flag, independent of the YAML config file's
// storage.buckets map.
type BucketOverride struct {
	Bucket       string `gorm:"primaryKey;size:255" json:"bucket"`
	ReadOnly     *bool  `gorm:"column:read_only" json:"read_only,omitempty"`
	JournalMode  string `gorm:"size:32" json:"journal_mode,omitempty"`
	Synchronous  string `gorm:"size:32" json:"synchronous,omitempty"`
	PoolSize     int    `json:"pool_size,omitempty"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
	UpdatedBy    string `gorm:"size:128" json:"updated_by,omitempty"`
}

// TableName returns the table name for BucketOverride.
func (BucketOverride) TableName() string {
	return "bucket_overrides"
}
