// Package middleware provides HTTP middleware for the S3 API server.
package middleware

import (
	"context"
	"net/http"

	"github.com/s3lite/s3lite/pkg/api/sigv4"
)

type contextKey string

const accessKeyContextKey contextKey = "access_key"

// AccessKeyFromContext returns the access key ID that authenticated the
// current request, or "" if SigV4Auth did not run.
func AccessKeyFromContext(ctx context.Context) string {
	key, _ := ctx.Value(accessKeyContextKey).(string)
	return key
}

// SigV4Auth verifies every request's AWS Signature Version 4 credentials
// against verifier's single static key pair, storing the access key in the
// request context on success and responding 403 AccessDenied otherwise.
func SigV4Auth(verifier *sigv4.Verifier, onDenied func(w http.ResponseWriter, r *http.Request, message string)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := verifier.Verify(r); err != nil {
				onDenied(w, r, err.Error())
				return
			}
			ctx := context.WithValue(r.Context(), accessKeyContextKey, accessKeyOf(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// accessKeyOf extracts the access key ID already validated by Verify,
// reading it back out of whichever form of credentials the request used.
func accessKeyOf(r *http.Request) string {
	if cred := r.URL.Query().Get("X-Amz-Credential"); cred != "" {
		if id, _, ok := cutAccessKey(cred); ok {
			return id
		}
	}
	return accessKeyFromAuthorizationHeader(r.Header.Get("Authorization"))
}
