package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate runs struct-tag validation over cfg and then the s3lite-specific
// rule that every bucket named under storage.buckets must have a
// corresponding <root>/<bucket>.sqlite3 file on disk.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := validateNamedBucketsExist(cfg); err != nil {
		return err
	}
	return validateControlPlane(cfg)
}

func validateControlPlane(cfg *Config) error {
	if !cfg.ControlPlane.Enabled {
		return nil
	}
	if len(cfg.ControlPlane.JWTSecret) < 32 {
		return fmt.Errorf("controlplane.jwt_secret must be at least 32 bytes when controlplane.enabled is true")
	}
	if cfg.ControlPlane.AdminPasswordHash == "" {
		return fmt.Errorf("controlplane.admin_password_hash is required when controlplane.enabled is true")
	}
	return nil
}

func validateNamedBucketsExist(cfg *Config) error {
	for bucket := range cfg.Storage.Buckets {
		path := filepath.Join(cfg.Storage.Root, bucket+".sqlite3")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return fmt.Errorf("storage.buckets names %q but %s does not exist", bucket, path)
		} else if err != nil {
			return fmt.Errorf("checking bucket %q: %w", bucket, err)
		}
	}
	return nil
}
