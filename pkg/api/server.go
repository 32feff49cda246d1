// Package api implements the S3-compatible HTTP surface: SigV4
// authentication, bucket and object operations, multipart uploads, and the
// XML wire format, all dispatched onto a pkg/storage Engine.
package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/s3lite/s3lite/internal/logger"
	"github.com/s3lite/s3lite/pkg/api/middleware"
	"github.com/s3lite/s3lite/pkg/api/sigv4"
	"github.com/s3lite/s3lite/pkg/config"
	"github.com/s3lite/s3lite/pkg/storage"
)

// rfc3339 is the timestamp layout S3 uses for CreationDate, LastModified
// (in XML bodies) and multipart Initiated fields.
const rfc3339 = "2006-01-02T15:04:05.000Z"

// defaultMaxRequestBodySize applies when ServerConfig.MaxRequestBodySize is
// left at zero, bounding PutObject/UploadPart bodies at 5GiB, the same
// single-PUT ceiling S3 itself enforces.
const defaultMaxRequestBodySize = 5 << 30

// Server is the S3 REST API HTTP server. It owns no storage state itself;
// every operation is a thin translation from HTTP/XML onto an Engine call.
type Server struct {
	server             *http.Server
	engine             *storage.Engine
	config             config.ServerConfig
	maxRequestBodySize int64
	verifier           *sigv4.Verifier
	shutdownOnce       sync.Once
}

// NewServer wires engine behind an S3-compatible HTTP server listening on
// cfg's host and port, authenticating every request against cfg's single
// static SigV4 credential pair.
func NewServer(cfg config.ServerConfig, engine *storage.Engine) *Server {
	maxBody := cfg.MaxRequestBodySize.Int64()
	if maxBody <= 0 {
		maxBody = defaultMaxRequestBodySize
	}

	s := &Server{
		engine:             engine,
		config:             cfg,
		maxRequestBodySize: maxBody,
		verifier:           sigv4.NewVerifier(cfg.AccessKey, cfg.SecretKey),
	}

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.routes(),
		ReadTimeout:  0, // bodies may be large and AWS-chunk-framed; bounded by maxRequestBodySize instead
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// accessKeyFromContext returns the access key that authenticated r, as
// stashed in its context by the SigV4Auth middleware.
func (s *Server) accessKeyFromContext(r *http.Request) string {
	return middleware.AccessKeyFromContext(r.Context())
}

// Start serves the S3 API and blocks until ctx is cancelled or the server
// fails to start, initiating graceful shutdown on cancellation.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		logger.Info("S3 API server listening", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			select {
			case errChan <- err:
			default:
			}
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("S3 API server shutdown signal received")
		timeout := s.config.ShutdownTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("S3 API server failed: %w", err)
	}
}

// Stop initiates graceful shutdown, safe to call multiple times and
// concurrently with Start.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		logger.Debug("S3 API server shutdown initiated")
		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("S3 API server shutdown error: %w", err)
			logger.Error("S3 API server shutdown error", "error", err)
			return
		}
		logger.Info("S3 API server stopped gracefully")
	})
	return shutdownErr
}

// Port returns the TCP port the server is configured to listen on.
func (s *Server) Port() int {
	return s.config.Port
}

// Handler exposes the underlying http.Handler, for tests that want to
// drive the router directly through httptest without binding a real port.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}
