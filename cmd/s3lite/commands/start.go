package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/s3lite/s3lite/internal/logger"
	"github.com/s3lite/s3lite/pkg/api"
	"github.com/s3lite/s3lite/pkg/config"
	cpapi "github.com/s3lite/s3lite/pkg/controlplane/api"
	"github.com/s3lite/s3lite/pkg/controlplane/auth"
	cpstore "github.com/s3lite/s3lite/pkg/controlplane/store"
	"github.com/s3lite/s3lite/pkg/metrics"
	"github.com/s3lite/s3lite/pkg/storage"

	// Registers the Prometheus collector constructor via init().
	_ "github.com/s3lite/s3lite/pkg/metrics/prometheus"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the s3lite S3 API server",
	Long: `Start the s3lite server, serving the S3 REST API against the bucket
SQLite files under --root.

Examples:
  # Start with a config file
  s3lite start --config /etc/s3lite/config.yaml

  # Start with flags only, no config file
  s3lite start --root /data/buckets --access-key AKIA... --secret-key ...`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().String("root", "", "directory containing <bucket>.sqlite3 files")
	startCmd.Flags().String("host", "", "listen address for the S3 API (default: all interfaces)")
	startCmd.Flags().Int("port", 0, "listen port for the S3 API (default: 8014)")
	startCmd.Flags().String("access-key", "", "static SigV4 access key")
	startCmd.Flags().String("secret-key", "", "static SigV4 secret key")
	startCmd.Flags().Int("concurrency-limit", 0, "global admission-controller permit count (default: 16)")
	startCmd.Flags().String("domain-name", "", "enables virtual-hosted-style bucket addressing under this domain")
	startCmd.Flags().Bool("permissive-cors", false, "respond to every origin with a wildcard CORS grant")
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	applyServerFlags(cmd, cfg)
	config.ApplyDefaults(cfg)
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var metricsInstance storage.Metrics
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		metricsInstance = metrics.New()
		logger.Info("metrics enabled", "port", cfg.Metrics.Port)
	} else {
		logger.Info("metrics disabled")
	}

	readOnly := func() bool { return cfg.Storage.ReadOnly }
	engine, err := storage.NewEngine(cfg.EngineConfig(metricsInstance, readOnly))
	if err != nil {
		return fmt.Errorf("failed to initialize storage engine: %w", err)
	}
	defer func() {
		if err := engine.Close(); err != nil {
			logger.Error("storage engine close error", "error", err)
		}
	}()

	engine.StartMultipartGC(ctx, cfg.Storage.MultipartTTL, cfg.Storage.MultipartGCInterval)

	apiServer := api.NewServer(cfg.Server, engine)
	logger.Info("S3 API server configured", "host", cfg.Server.Host, "port", cfg.Server.Port)

	var mgmtServer *api.ManagementServer
	if cfg.Metrics.Enabled {
		mgmtServer = api.NewManagementServer(cfg.Metrics)
	}

	var cpServer *cpapi.Server
	var cpDB *cpstore.Store
	if cfg.ControlPlane.Enabled {
		cpDB, err = cpstore.Open(cpstore.Driver(cfg.ControlPlane.DatabaseDriver), cfg.ControlPlane.DatabaseDSN)
		if err != nil {
			return fmt.Errorf("failed to open control plane database: %w", err)
		}
		authSvc, err := auth.NewService(auth.Config{
			Secret:              cfg.ControlPlane.JWTSecret,
			Issuer:              "s3lite",
			AccessTokenDuration: cfg.ControlPlane.TokenTTL,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize control plane JWT service: %w", err)
		}
		cpServer = cpapi.NewServer(cfg.ControlPlane.Port, cpDB, authSvc, cfg.ControlPlane.AdminPasswordHash)
		logger.Info("control plane enabled", "port", cfg.ControlPlane.Port)
	}
	if cpDB != nil {
		defer func() { _ = cpDB.Close() }()
	}

	serverDone := make(chan error, 1)
	go func() { serverDone <- apiServer.Start(ctx) }()

	var mgmtDone chan error
	if mgmtServer != nil {
		mgmtDone = make(chan error, 1)
		go func() { mgmtDone <- mgmtServer.Start(ctx) }()
	}

	var cpDone chan error
	if cpServer != nil {
		cpDone = make(chan error, 1)
		go func() { cpDone <- cpServer.Start(ctx) }()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("s3lite is running, press Ctrl+C to stop")

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("shutdown signal received, initiating graceful shutdown")
		cancel()
		if err := <-serverDone; err != nil {
			logger.Error("S3 API server shutdown error", "error", err)
			return err
		}
		if mgmtDone != nil {
			if err := <-mgmtDone; err != nil {
				logger.Error("management server shutdown error", "error", err)
			}
		}
		if cpDone != nil {
			if err := <-cpDone; err != nil {
				logger.Error("control plane API shutdown error", "error", err)
			}
		}
		logger.Info("s3lite stopped gracefully")
	case err := <-serverDone:
		signal.Stop(sigChan)
		if err != nil {
			logger.Error("S3 API server error", "error", err)
			return err
		}
	}
	return nil
}
