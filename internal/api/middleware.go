// Package api implements the Anchorage REST API using chi. Every JSON
// response is an envelope.Result.
package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/starford/anchorage/internal/envelope"
)

// AuthMiddleware returns middleware that validates a Bearer token.
// If enabled is false, all requests pass through (disabled mode).
// If enabled is true, requests must carry a valid "Authorization: Bearer <token>" header.
func AuthMiddleware(enabled bool, token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled {
				next.ServeHTTP(w, r)
				return
			}
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != token {
				res := envelope.Fail[any](errors.New("unauthorized"))
				res.Code = "unauthorized"
				writeJSON(w, http.StatusUnauthorized, res)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
