package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/x402gateway/gateway/internal/apierr"
	"github.com/x402gateway/gateway/internal/metrics"
)

// DefaultWindowMs is the sliding window width spec §4.1 defaults to.
const DefaultWindowMs int64 = 1000

// Enforce runs the per-endpoint Check and, on success, stamps the
// X-RateLimit-* response headers spec §4.1/§6 require. On denial it writes
// the 429 body via apierr.WriteRateLimited (which also sets Retry-After) and
// returns false so the caller's pipeline stops before touching the upstream.
//
// key identifies the resource being limited — conventionally
// "<tenantSlug>/<endpointSlug>" — not the caller's identity; the limit is a
// property of the endpoint, not the client.
func Enforce(w http.ResponseWriter, limiter *Limiter, key string, limitPerSec int, windowMs int64, m *metrics.Metrics, tenantSlug, endpointSlug string) bool {
	if windowMs <= 0 {
		windowMs = DefaultWindowMs
	}

	result := limiter.Check(key, limitPerSec, windowMs)

	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

	if result.Allowed {
		return true
	}

	if m != nil {
		m.ObserveRateLimitDenied(tenantSlug, endpointSlug)
	}

	retryAfter := int(time.Until(result.ResetAt).Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}
	apierr.WriteRateLimited(w, retryAfter)
	return false
}
