package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/s3lite/s3lite/internal/logger"
	"github.com/s3lite/s3lite/pkg/config"
	"github.com/s3lite/s3lite/pkg/metrics"
)

// ManagementServer exposes the Prometheus metrics scrape endpoint and a
// liveness probe on a port separate from the S3 API, so the data plane and
// the operational plane can be firewalled independently.
type ManagementServer struct {
	server       *http.Server
	config       config.MetricsConfig
	shutdownOnce sync.Once
}

// NewManagementServer builds the management HTTP server. It always serves
// /healthz; /metrics only responds when cfg.Enabled (metrics.InitRegistry
// was called) and otherwise 404s.
func NewManagementServer(cfg config.MetricsConfig) *ManagementServer {
	r := chi.NewRouter()
	r.Get("/healthz", handleLiveness)
	if handler := metrics.Handler(); handler != nil {
		r.Handle("/metrics", handler)
	}

	return &ManagementServer{
		config: cfg,
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

func handleLiveness(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(healthResponse{Status: "healthy", Timestamp: time.Now().UTC()}); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// Start serves the management endpoints and blocks until ctx is cancelled.
func (m *ManagementServer) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		logger.Info("management server listening", "address", m.server.Addr)
		if err := m.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			select {
			case errChan <- err:
			default:
			}
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return m.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("management server failed: %w", err)
	}
}

// Stop initiates graceful shutdown, safe to call multiple times.
func (m *ManagementServer) Stop(ctx context.Context) error {
	var shutdownErr error
	m.shutdownOnce.Do(func() {
		if err := m.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("management server shutdown error: %w", err)
		}
	})
	return shutdownErr
}

// Port returns the configured management port.
func (m *ManagementServer) Port() int {
	return m.config.Port
}
