package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/s3lite/s3lite/pkg/controlplane/auth"
	"github.com/s3lite/s3lite/pkg/controlplane/models"
	"github.com/s3lite/s3lite/pkg/controlplane/store"
)

type loginRequest struct {
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// handleLogin verifies the single admin password against the configured
// bcrypt hash and, on success, issues a fresh access/refresh token pair.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "malformed request body")
		return
	}
	if !models.VerifySecret(req.Password, s.adminPasswordHash) {
		unauthorized(w, "invalid password")
		return
	}
	pair, err := s.authSvc.IssueTokenPair()
	if err != nil {
		internalError(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

// handleRefresh exchanges a valid refresh token for a new token pair.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "malformed request body")
		return
	}
	if _, err := s.authSvc.ValidateRefreshToken(req.RefreshToken); err != nil {
		unauthorized(w, "invalid or expired refresh token")
		return
	}
	pair, err := s.authSvc.IssueTokenPair()
	if err != nil {
		internalError(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

// handleListCredentials returns every recognized SigV4 credential, without secrets.
func (s *Server) handleListCredentials(w http.ResponseWriter, r *http.Request) {
	creds, err := s.store.ListCredentials(r.Context())
	if err != nil {
		internalError(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, creds)
}

type createCredentialRequest struct {
	Label string `json:"label"`
}

type createCredentialResponse struct {
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
	Label     string `json:"label,omitempty"`
}

// handleCreateCredential mints a new random access/secret key pair and
// stores the bcrypt hash of the secret, returning the plaintext secret once.
func (s *Server) handleCreateCredential(w http.ResponseWriter, r *http.Request) {
	var req createCredentialRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	accessKey, err := models.GenerateAccessKey()
	if err != nil {
		internalError(w, err.Error())
		return
	}
	secretKey, err := models.GenerateSecretKey()
	if err != nil {
		internalError(w, err.Error())
		return
	}
	hash, err := models.HashSecret(secretKey)
	if err != nil {
		internalError(w, err.Error())
		return
	}

	cred := &models.Credential{AccessKey: accessKey, SecretHash: hash, Label: req.Label}
	if err := s.store.CreateCredential(r.Context(), cred); err != nil {
		internalError(w, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, &createCredentialResponse{AccessKey: accessKey, SecretKey: secretKey, Label: req.Label})
}

// handleDeleteCredential revokes a credential by access key.
func (s *Server) handleDeleteCredential(w http.ResponseWriter, r *http.Request) {
	accessKey := chi.URLParam(r, "accessKey")
	err := s.store.DeleteCredential(r.Context(), accessKey)
	switch {
	case errors.Is(err, store.ErrCredentialNotFound):
		notFound(w, "no such credential")
	case err != nil:
		internalError(w, err.Error())
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

type setDisabledRequest struct {
	Disabled bool `json:"disabled"`
}

// handleSetCredentialDisabled enables or disables a credential without
// deleting its record.
func (s *Server) handleSetCredentialDisabled(w http.ResponseWriter, r *http.Request) {
	accessKey := chi.URLParam(r, "accessKey")
	var req setDisabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "malformed request body")
		return
	}
	err := s.store.SetDisabled(r.Context(), accessKey, req.Disabled)
	switch {
	case errors.Is(err, store.ErrCredentialNotFound):
		notFound(w, "no such credential")
	case err != nil:
		internalError(w, err.Error())
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleListBucketOverrides returns every durable per-bucket override.
func (s *Server) handleListBucketOverrides(w http.ResponseWriter, r *http.Request) {
	overrides, err := s.store.ListBucketOverrides(r.Context())
	if err != nil {
		internalError(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, overrides)
}

// handlePutBucketOverride creates or replaces a bucket's durable override.
func (s *Server) handlePutBucketOverride(w http.ResponseWriter, r *http.Request) {
	bucket := chi.URLParam(r, "bucket")
	var override models.BucketOverride
	if err := json.NewDecoder(r.Body).Decode(&override); err != nil {
		badRequest(w, "malformed request body")
		return
	}
	override.Bucket = bucket
	if err := s.store.UpsertBucketOverride(r.Context(), &override); err != nil {
		internalError(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, &override)
}

// handleDeleteBucketOverride removes a bucket's durable override.
func (s *Server) handleDeleteBucketOverride(w http.ResponseWriter, r *http.Request) {
	bucket := chi.URLParam(r, "bucket")
	err := s.store.DeleteBucketOverride(r.Context(), bucket)
	switch {
	case errors.Is(err, store.ErrOverrideNotFound):
		notFound(w, "no such override")
	case err != nil:
		internalError(w, err.Error())
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleLiveness reports the control plane API as up; it never reflects
// store health since GORM already fails requests on a dead connection.
func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
