package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s3lite/s3lite/pkg/controlplane/auth"
	"github.com/s3lite/s3lite/pkg/controlplane/models"
	"github.com/s3lite/s3lite/pkg/controlplane/store"
)

const testAdminPassword = "correct-horse-battery-staple"

func newTestControlPlaneServer(t *testing.T) *Server {
	t.Helper()
	st, err := store.Open(store.DriverSQLite, filepath.Join(t.TempDir(), "controlplane.sqlite3"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	authSvc, err := auth.NewService(auth.Config{
		Secret: "test-secret-key-at-least-32-bytes!!",
		Issuer: "s3lite-test",
	})
	require.NoError(t, err)

	hash, err := models.HashAdminPassword(testAdminPassword)
	require.NoError(t, err)

	return NewServer(0, st, authSvc, hash)
}

func doJSON(t *testing.T, client *http.Client, method, url, token string, body any) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	require.NoError(t, err)
	return resp
}

func TestControlPlaneLoginRejectsWrongPassword(t *testing.T) {
	s := newTestControlPlaneServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp := doJSON(t, ts.Client(), http.MethodPost, ts.URL+"/controlplane/v1/auth/login", "", loginRequest{Password: "wrong"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestControlPlaneCredentialLifecycleOverHTTP(t *testing.T) {
	s := newTestControlPlaneServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()
	client := ts.Client()

	resp := doJSON(t, client, http.MethodPost, ts.URL+"/controlplane/v1/auth/login", "", loginRequest{Password: testAdminPassword})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var pair auth.TokenPair
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pair))
	resp.Body.Close()
	require.NotEmpty(t, pair.AccessToken)

	resp = doJSON(t, client, http.MethodGet, ts.URL+"/controlplane/v1/credentials/", "", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doJSON(t, client, http.MethodPost, ts.URL+"/controlplane/v1/credentials/", pair.AccessToken, createCredentialRequest{Label: "ci"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created createCredentialResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()
	assert.NotEmpty(t, created.AccessKey)
	assert.NotEmpty(t, created.SecretKey)

	resp = doJSON(t, client, http.MethodGet, ts.URL+"/controlplane/v1/credentials/", pair.AccessToken, nil)
	var creds []models.Credential
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&creds))
	resp.Body.Close()
	assert.Len(t, creds, 1)

	resp = doJSON(t, client, http.MethodDelete, ts.URL+"/controlplane/v1/credentials/"+created.AccessKey, pair.AccessToken, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestControlPlaneLivenessIsUnauthenticated(t *testing.T) {
	s := newTestControlPlaneServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
