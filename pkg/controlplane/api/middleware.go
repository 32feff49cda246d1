package api

import (
	"net/http"
	"strings"

	"github.com/s3lite/s3lite/pkg/controlplane/auth"
)

// jwtAuth requires a valid Bearer access token on every request it wraps.
func jwtAuth(svc *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				unauthorized(w, "missing bearer token")
				return
			}
			if _, err := svc.ValidateAccessToken(token); err != nil {
				unauthorized(w, "invalid or expired token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
