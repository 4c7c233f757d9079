package ratelimit

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/x402gateway/gateway/internal/metrics"
)

func TestEnforceAllowsAndStampsHeaders(t *testing.T) {
	l := New()
	w := httptest.NewRecorder()

	allowed := Enforce(w, l, "acme/weather", 5, 1000, nil, "acme", "weather")
	if !allowed {
		t.Fatal("expected request to be allowed")
	}
	if w.Header().Get("X-RateLimit-Limit") != "5" {
		t.Errorf("X-RateLimit-Limit = %q, want 5", w.Header().Get("X-RateLimit-Limit"))
	}
	if w.Header().Get("X-RateLimit-Remaining") != "4" {
		t.Errorf("X-RateLimit-Remaining = %q, want 4", w.Header().Get("X-RateLimit-Remaining"))
	}
	if w.Header().Get("X-RateLimit-Reset") == "" {
		t.Error("X-RateLimit-Reset should be set")
	}
}

func TestEnforceDeniesAndWrites429(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	l := New()

	Enforce(httptest.NewRecorder(), l, "acme/weather", 1, 1000, m, "acme", "weather")

	w := httptest.NewRecorder()
	allowed := Enforce(w, l, "acme/weather", 1, 1000, m, "acme", "weather")
	if allowed {
		t.Fatal("2nd request should be denied")
	}
	if w.Code != 429 {
		t.Errorf("status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("Retry-After should be set")
	}
	if got := promtest.ToFloat64(m.RateLimitDeniedTotal.WithLabelValues("acme", "weather")); got != 1 {
		t.Errorf("denied metric = %.0f, want 1", got)
	}
}

func TestEnforceDefaultsWindow(t *testing.T) {
	l := New()
	w := httptest.NewRecorder()
	if !Enforce(w, l, "k", 1, 0, nil, "t", "e") {
		t.Fatal("expected first request allowed with default window")
	}
}
