package ratelimit

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"github.com/x402gateway/gateway/internal/metrics"
)

// Config controls the coarse, pre-resolution abuse throttle that sits in
// front of endpoint resolution. It exists to absorb floods (bad actors
// hammering unknown slugs) before a request ever reaches the per-endpoint
// Limiter, which only makes sense once a tenant/endpoint pair is known.
type Config struct {
	GlobalEnabled bool
	GlobalLimit   int
	GlobalWindow  time.Duration

	PerIPEnabled bool
	PerIPLimit   int
	PerIPWindow  time.Duration

	Metrics *metrics.Metrics
}

// DefaultConfig returns conservative abuse-throttle defaults.
func DefaultConfig() Config {
	return Config{
		GlobalEnabled: true,
		GlobalLimit:   2000,
		GlobalWindow:  time.Minute,

		PerIPEnabled: true,
		PerIPLimit:   120,
		PerIPWindow:  time.Minute,
	}
}

// Middleware builds the outer chi middleware chain from cfg. Either layer
// may be individually disabled. This never consults tenant/endpoint
// identity — that is the per-endpoint Limiter's job, applied later in the
// pipeline once resolution has happened.
func Middleware(cfg Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		handler := next
		if cfg.PerIPEnabled {
			handler = httprate.Limit(
				cfg.PerIPLimit,
				cfg.PerIPWindow,
				httprate.WithKeyByIP(),
				httprate.WithLimitHandler(denyHandler(cfg.Metrics, "per_ip")),
			)(handler)
		}
		if cfg.GlobalEnabled {
			handler = httprate.Limit(
				cfg.GlobalLimit,
				cfg.GlobalWindow,
				httprate.WithKeyFuncs(func(r *http.Request) (string, error) { return "global", nil }),
				httprate.WithLimitHandler(denyHandler(cfg.Metrics, "global")),
			)(handler)
		}
		return handler
	}
}

func denyHandler(m *metrics.Metrics, scope string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m != nil {
			m.ObserveRateLimitDenied(scope, "")
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"rate_limited","message":"too many requests"}`))
	}
}
