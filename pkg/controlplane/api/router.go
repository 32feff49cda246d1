package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// routes builds the control-plane router.
//
// Routes:
//   - GET  /healthz                                   liveness, unauthenticated
//   - POST /controlplane/v1/auth/login                obtain a token pair
//   - POST /controlplane/v1/auth/refresh               exchange a refresh token
//   - GET    /controlplane/v1/credentials              list credentials
//   - POST   /controlplane/v1/credentials              mint a credential
//   - DELETE /controlplane/v1/credentials/{accessKey}  revoke a credential
//   - PATCH  /controlplane/v1/credentials/{accessKey}/disabled
//   - GET    /controlplane/v1/bucket-overrides
//   - PUT    /controlplane/v1/bucket-overrides/{bucket}
//   - DELETE /controlplane/v1/bucket-overrides/{bucket}
func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/healthz", s.handleLiveness)

	r.Route("/controlplane/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", s.handleLogin)
			r.Post("/refresh", s.handleRefresh)
		})

		r.Group(func(r chi.Router) {
			r.Use(jwtAuth(s.authSvc))

			r.Route("/credentials", func(r chi.Router) {
				r.Get("/", s.handleListCredentials)
				r.Post("/", s.handleCreateCredential)
				r.Delete("/{accessKey}", s.handleDeleteCredential)
				r.Patch("/{accessKey}/disabled", s.handleSetCredentialDisabled)
			})

			r.Route("/bucket-overrides", func(r chi.Router) {
				r.Get("/", s.handleListBucketOverrides)
				r.Put("/{bucket}", s.handlePutBucketOverride)
				r.Delete("/{bucket}", s.handleDeleteBucketOverride)
			})
		})
	})

	return r
}
