// Package config loads and validates the s3lite service configuration:
// logging, the HTTP server, the storage engine's service-level defaults,
// per-bucket pragma overrides, the metrics endpoint, and the optional
// bucket-admin control plane.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/s3lite/s3lite/internal/bytesize"
)

// Config is the root s3lite configuration.
//
// Configuration sources, in order of precedence:
//  1. CLI flags (highest priority)
//  2. Environment variables (S3LITE_*)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
type Config struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Server configures the S3 REST API listener and its auth credentials.
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// Storage configures the bucket root directory and the default/per-bucket
	// SQLite pragma snapshot.
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`

	// Metrics contains Prometheus metrics server configuration.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// ControlPlane contains the optional bucket-admin REST API configuration.
	ControlPlane ControlPlaneConfig `mapstructure:"controlplane" yaml:"controlplane"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase).
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format.
	// Valid values: text, json.
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written.
	// Valid values: stdout, stderr, or a file path.
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// ServerConfig configures the S3 REST API listener.
type ServerConfig struct {
	// Host is the listen address for the S3 API, empty binds all interfaces.
	Host string `mapstructure:"host" yaml:"host"`

	// Port is the listen port for the S3 API. Default: 8014.
	Port int `mapstructure:"port" validate:"required,min=1,max=65535" yaml:"port"`

	// AccessKey and SecretKey are the single static SigV4 credential pair.
	AccessKey string `mapstructure:"access_key" validate:"required" yaml:"access_key"`
	SecretKey string `mapstructure:"secret_key" validate:"required" yaml:"secret_key"`

	// ConcurrencyLimit bounds the Admission Controller's global permit count.
	// Default: 16.
	ConcurrencyLimit int `mapstructure:"concurrency_limit" validate:"required,gt=0" yaml:"concurrency_limit"`

	// DomainName, when set, enables virtual-hosted-style bucket addressing
	// (<bucket>.<domain>) in addition to path-style.
	DomainName string `mapstructure:"domain_name" yaml:"domain_name,omitempty"`

	// PermissiveCORS responds to every origin with a wildcard CORS header.
	PermissiveCORS bool `mapstructure:"permissive_cors" yaml:"permissive_cors"`

	// ShutdownTimeout bounds how long the server waits for in-flight
	// requests to drain on SIGINT/SIGTERM before forcing a close.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// MaxRequestBodySize caps the size of a single PutObject/UploadPart body.
	// Supports human-readable formats: "5GB", "512Mi".
	MaxRequestBodySize bytesize.ByteSize `mapstructure:"max_request_body_size" yaml:"max_request_body_size,omitempty"`
}

// StorageConfig configures the bucket root and the service-level SQLite
// pragma defaults, plus per-bucket overrides.
type StorageConfig struct {
	// Root is the directory containing one <bucket>.sqlite3 file per bucket.
	// Default: ".".
	Root string `mapstructure:"root" validate:"required" yaml:"root"`

	// ReadOnly rejects every mutating operation service-wide when true.
	ReadOnly bool `mapstructure:"read_only" yaml:"read_only"`

	// JournalMode, Synchronous, TempStore, CacheSize mirror the SQLite
	// pragmas applied to every bucket without an explicit override.
	JournalMode string `mapstructure:"journal_mode" validate:"omitempty,oneof=DELETE TRUNCATE PERSIST MEMORY WAL OFF" yaml:"journal_mode"`
	Synchronous string `mapstructure:"synchronous" validate:"omitempty,oneof=OFF NORMAL FULL EXTRA" yaml:"synchronous"`
	TempStore   string `mapstructure:"temp_store" validate:"omitempty,oneof=DEFAULT FILE MEMORY" yaml:"temp_store"`
	CacheSize   int64  `mapstructure:"cache_size" yaml:"cache_size"`

	// PoolSize bounds the number of concurrent database handles held open
	// per bucket. Default: 16.
	PoolSize int `mapstructure:"pool_size" yaml:"pool_size"`

	// MultipartTTL is how long an abandoned multipart upload survives
	// before garbage collection reclaims it. Default: 168h (7 days).
	MultipartTTL time.Duration `mapstructure:"multipart_ttl" yaml:"multipart_ttl"`

	// MultipartGCInterval is the period between background GC sweeps.
	// Default: 15m.
	MultipartGCInterval time.Duration `mapstructure:"multipart_gc_interval" yaml:"multipart_gc_interval"`

	// Buckets maps bucket name to a per-bucket override of ReadOnly and the
	// pragma block above. A named bucket with no corresponding
	// <root>/<bucket>.sqlite3 file on disk is a startup error.
	Buckets map[string]BucketOverride `mapstructure:"buckets" validate:"dive" yaml:"buckets,omitempty"`
}

// BucketOverride is the subset of StorageConfig a single bucket may override.
type BucketOverride struct {
	ReadOnly     *bool         `mapstructure:"read_only" yaml:"read_only,omitempty"`
	JournalMode  string        `mapstructure:"journal_mode" validate:"omitempty,oneof=DELETE TRUNCATE PERSIST MEMORY WAL OFF" yaml:"journal_mode,omitempty"`
	Synchronous  string        `mapstructure:"synchronous" validate:"omitempty,oneof=OFF NORMAL FULL EXTRA" yaml:"synchronous,omitempty"`
	TempStore    string        `mapstructure:"temp_store" validate:"omitempty,oneof=DEFAULT FILE MEMORY" yaml:"temp_store,omitempty"`
	CacheSize    int64         `mapstructure:"cache_size" yaml:"cache_size,omitempty"`
	PoolSize     int           `mapstructure:"pool_size" yaml:"pool_size,omitempty"`
	MultipartTTL time.Duration `mapstructure:"multipart_ttl" yaml:"multipart_ttl,omitempty"`
}

// MetricsConfig configures the Prometheus metrics HTTP server.
// When Enabled is false, no metrics are collected (zero overhead).
type MetricsConfig struct {
	// Enabled controls whether metrics collection and HTTP server are enabled.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port for the metrics and /healthz endpoints. Default: 9090.
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// ControlPlaneConfig configures the optional bucket-admin REST API.
// Disabled by default; the static credential pair in ServerConfig works
// with the control plane disabled.
type ControlPlaneConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the listen port for the control-plane REST API.
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`

	// DatabaseDriver selects the GORM backend: "sqlite" or "postgres".
	DatabaseDriver string `mapstructure:"database_driver" validate:"omitempty,oneof=sqlite postgres" yaml:"database_driver"`

	// DatabaseDSN is the GORM data source name for the selected driver.
	DatabaseDSN string `mapstructure:"database_dsn" yaml:"database_dsn"`

	// JWTSecret signs and verifies control-plane session tokens. Must be at
	// least 32 bytes; required when Enabled is true.
	JWTSecret string `mapstructure:"jwt_secret" yaml:"jwt_secret,omitempty"`

	// TokenTTL bounds the lifetime of an issued access token.
	TokenTTL time.Duration `mapstructure:"token_ttl" yaml:"token_ttl"`

	// AdminPasswordHash is a bcrypt hash of the single control-plane admin
	// password. Required when Enabled is true.
	AdminPasswordHash string `mapstructure:"admin_password_hash" yaml:"admin_password_hash,omitempty"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (S3LITE_*)
//  2. Configuration file
//  3. Default values
//
// Environment variables are consulted only when a configuration file is
// found, and only for keys that file sets; with no file, Load returns
// DefaultConfig() and ignores S3LITE_* variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}
	if !found {
		// No config file and no env overrides means no SigV4 credentials
		// either; that is only valid for offline tooling (e.g. `bucket`
		// subcommands against pkg/storage directly), so skip validation here
		// and let the HTTP server refuse to start on an empty AccessKey.
		return DefaultConfig(), nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// SaveConfig writes cfg to path in YAML form, restricted to owner read/write
// since it may carry the static secret key or a control-plane JWT secret.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// setupViper configures environment variable and config file resolution.
func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("S3LITE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	configDir := getConfigDir()
	v.AddConfigPath(configDir)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

// readConfigFile reads the configuration file if it exists, reporting
// (found, error).
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

// configDecodeHooks combines the ByteSize and time.Duration decode hooks so
// config files can use human-readable sizes and durations.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
	)
}

func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return bytesize.ParseByteSize(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns $XDG_CONFIG_HOME/s3lite, falling back to
// ~/.config/s3lite, or "." if the home directory cannot be determined.
func getConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "s3lite")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "s3lite")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists reports whether a config file exists at the default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}
