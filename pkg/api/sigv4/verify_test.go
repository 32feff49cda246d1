package sigv4

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedGetRequest(t *testing.T, accessKey, secretKey string, body []byte, signingTime time.Time) *http.Request {
	t.Helper()

	sum := sha256.Sum256(body)
	payloadHash := hex.EncodeToString(sum[:])

	req := httptest.NewRequest(http.MethodGet, "http://s3lite.example.com/tests/hello", nil)
	req.Header.Set("X-Amz-Content-Sha256", payloadHash)
	req.Header.Set("X-Amz-Date", signingTime.Format(dateLayout))

	signer := v4.NewSigner()
	creds := aws.Credentials{AccessKeyID: accessKey, SecretAccessKey: secretKey}
	require.NoError(t, signer.SignHTTP(context.Background(), creds, req, payloadHash, "s3", "us-east-1", signingTime))
	return req
}

func TestVerifyHeaderAcceptsValidSignature(t *testing.T) {
	signingTime := time.Now().UTC().Truncate(time.Second)
	req := signedGetRequest(t, "access", "secret", nil, signingTime)

	v := NewVerifier("access", "secret")
	assert.NoError(t, v.Verify(req))
}

func TestVerifyHeaderRejectsWrongSecret(t *testing.T) {
	signingTime := time.Now().UTC().Truncate(time.Second)
	req := signedGetRequest(t, "access", "secret", nil, signingTime)

	v := NewVerifier("access", "wrong-secret")
	err := v.Verify(req)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyHeaderRejectsUnknownAccessKey(t *testing.T) {
	signingTime := time.Now().UTC().Truncate(time.Second)
	req := signedGetRequest(t, "someone-else", "secret", nil, signingTime)

	v := NewVerifier("access", "secret")
	err := v.Verify(req)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyHeaderRejectsTamperedHeader(t *testing.T) {
	signingTime := time.Now().UTC().Truncate(time.Second)
	req := signedGetRequest(t, "access", "secret", nil, signingTime)
	req.Header.Set("X-Amz-Date", signingTime.Add(time.Hour).Format(dateLayout))

	v := NewVerifier("access", "secret")
	err := v.Verify(req)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyReturnsUnauthenticatedWhenUnsigned(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://s3lite.example.com/tests/hello", nil)

	v := NewVerifier("access", "secret")
	err := v.Verify(req)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestVerifyPresignedAcceptsValidSignature(t *testing.T) {
	signingTime := time.Now().UTC().Truncate(time.Second)
	req := httptest.NewRequest(http.MethodGet, "http://s3lite.example.com/tests/hello", nil)

	signer := v4.NewSigner()
	creds := aws.Credentials{AccessKeyID: "access", SecretAccessKey: "secret"}
	req.URL.RawQuery = "X-Amz-Algorithm=AWS4-HMAC-SHA256&X-Amz-Credential=access%2F" +
		signingTime.Format("20060102") + "%2Fus-east-1%2Fs3%2Faws4_request&X-Amz-Date=" +
		signingTime.Format(dateLayout) + "&X-Amz-Expires=900&X-Amz-SignedHeaders=host"

	signedURI, _, err := signer.PresignHTTP(context.Background(), creds, req, "UNSIGNED-PAYLOAD", "s3", "us-east-1", signingTime)
	require.NoError(t, err)

	signedReq := httptest.NewRequest(http.MethodGet, signedURI, nil)

	v := NewVerifier("access", "secret")
	assert.NoError(t, v.Verify(signedReq))
}

func TestVerifyPresignedRejectsExpired(t *testing.T) {
	signingTime := time.Now().UTC().Add(-2 * time.Hour).Truncate(time.Second)
	req := httptest.NewRequest(http.MethodGet, "http://s3lite.example.com/tests/hello", nil)

	signer := v4.NewSigner()
	creds := aws.Credentials{AccessKeyID: "access", SecretAccessKey: "secret"}
	req.URL.RawQuery = "X-Amz-Algorithm=AWS4-HMAC-SHA256&X-Amz-Credential=access%2F" +
		signingTime.Format("20060102") + "%2Fus-east-1%2Fs3%2Faws4_request&X-Amz-Date=" +
		signingTime.Format(dateLayout) + "&X-Amz-Expires=900&X-Amz-SignedHeaders=host"

	signedURI, _, err := signer.PresignHTTP(context.Background(), creds, req, "UNSIGNED-PAYLOAD", "s3", "us-east-1", signingTime)
	require.NoError(t, err)

	signedReq := httptest.NewRequest(http.MethodGet, signedURI, nil)

	v := NewVerifier("access", "secret")
	err = v.Verify(signedReq)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}
