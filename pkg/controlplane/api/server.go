// Package api is the bucket-admin control-plane REST API: JWT-authenticated
// management of the set of recognized SigV4 credentials and durable
// per-bucket overrides, entirely additive to the single static credential
// pair the S3 API server itself uses.
package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/s3lite/s3lite/internal/logger"
	"github.com/s3lite/s3lite/pkg/controlplane/auth"
	"github.com/s3lite/s3lite/pkg/controlplane/store"
)

// Server is the control-plane HTTP server.
type Server struct {
	server            *http.Server
	store             *store.Store
	authSvc           *auth.Service
	adminPasswordHash string
	port              int
	shutdownOnce      sync.Once
}

// NewServer builds a control-plane Server listening on port, authenticating
// its single admin principal against adminPasswordHash.
func NewServer(port int, st *store.Store, authSvc *auth.Service, adminPasswordHash string) *Server {
	s := &Server{
		store:             st,
		authSvc:           authSvc,
		adminPasswordHash: adminPasswordHash,
		port:              port,
	}
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start serves the control-plane API until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		logger.Info("control plane API listening", "port", s.port)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("control plane API failed: %w", err)
	}
}

// Stop gracefully shuts down the control-plane API. Safe to call multiple times.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("control plane API shutdown error: %w", err)
		}
	})
	return shutdownErr
}

// Port returns the TCP port the server is configured to listen on.
func (s *Server) Port() int {
	return s.port
}

// Handler returns the server's http.Handler, for tests that want to drive
// it with httptest.NewServer instead of a real listener.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}
