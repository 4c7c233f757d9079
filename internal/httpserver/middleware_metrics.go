package httpserver

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/x402gateway/gateway/pkg/responders"
)

// adminMetricsAuth protects the /metrics endpoint with an optional bearer
// API key. If no key is configured, the endpoint is open.
func adminMetricsAuth(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			provided := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
				responders.JSON(w, http.StatusUnauthorized, map[string]string{
					"error":   "unauthorized",
					"message": "invalid or missing admin API key",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
