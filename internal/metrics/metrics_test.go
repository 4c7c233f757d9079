package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsInitialization(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	if m == nil {
		t.Fatal("metrics collector should not be nil")
	}
	if m.PaymentsAttemptedTotal == nil || m.PaymentsVerifiedTotal == nil ||
		m.PaymentsSettledTotal == nil || m.PaymentsFailedTotal == nil {
		t.Error("payment counters should be initialized")
	}
	if m.VerifyDuration == nil || m.SettleDuration == nil {
		t.Error("facilitator latency histograms should be initialized")
	}
	if m.RateLimitDeniedTotal == nil || m.RateLimitActiveKeys == nil {
		t.Error("rate limit metrics should be initialized")
	}
}

func TestObservePaymentLifecycle(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.ObservePaymentAttempted("alice", "weather")
	m.ObservePaymentVerified("alice", "weather", 100*time.Millisecond)
	m.ObservePaymentSettled("alice", "weather", 2*time.Second)

	if got := promtest.ToFloat64(m.PaymentsAttemptedTotal.WithLabelValues("alice", "weather")); got != 1 {
		t.Errorf("attempted = %.0f, want 1", got)
	}
	if got := promtest.ToFloat64(m.PaymentsVerifiedTotal.WithLabelValues("alice", "weather")); got != 1 {
		t.Errorf("verified = %.0f, want 1", got)
	}
	if got := promtest.ToFloat64(m.PaymentsSettledTotal.WithLabelValues("alice", "weather")); got != 1 {
		t.Errorf("settled = %.0f, want 1", got)
	}
}

func TestObservePaymentFailures(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.ObservePaymentVerifyFailed("alice", "weather", 50*time.Millisecond)
	m.ObservePaymentSettleFailed("alice", "weather", 1*time.Second)
	m.ObservePaymentUpstreamFailed("alice", "weather")

	if got := promtest.ToFloat64(m.PaymentsFailedTotal.WithLabelValues("alice", "weather", "verify_failed")); got != 1 {
		t.Errorf("verify_failed = %.0f, want 1", got)
	}
	if got := promtest.ToFloat64(m.PaymentsFailedTotal.WithLabelValues("alice", "weather", "settle_failed")); got != 1 {
		t.Errorf("settle_failed = %.0f, want 1", got)
	}
	if got := promtest.ToFloat64(m.PaymentsFailedTotal.WithLabelValues("alice", "weather", "upstream_failed")); got != 1 {
		t.Errorf("upstream_failed = %.0f, want 1", got)
	}
}

func TestObserveRateLimitDenied(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.ObserveRateLimitDenied("alice", "weather")
	m.SetRateLimitActiveKeys(3)

	if got := promtest.ToFloat64(m.RateLimitDeniedTotal.WithLabelValues("alice", "weather")); got != 1 {
		t.Errorf("denied = %.0f, want 1", got)
	}
	if got := promtest.ToFloat64(m.RateLimitActiveKeys); got != 3 {
		t.Errorf("active keys = %.0f, want 3", got)
	}
}

func TestObserveProxyRequest(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.ObserveProxyRequest("alice", "weather", "2xx")
	m.ObserveUpstreamDuration("alice", "weather", 25*time.Millisecond)

	if got := promtest.ToFloat64(m.ProxyRequestsTotal.WithLabelValues("alice", "weather", "2xx")); got != 1 {
		t.Errorf("proxy requests = %.0f, want 1", got)
	}
}

func TestObserveDBQuery(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.ObserveDBQuery("select_endpoint", "postgres", 5*time.Millisecond)

	if m.DBQueryDuration == nil {
		t.Error("DBQueryDuration should be initialized")
	}
}
