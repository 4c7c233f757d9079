// Package metrics wires the proxy pipeline's outcomes into Prometheus, the
// same promauto-based construction style the teacher's payment gateway used
// for its own metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every Prometheus collector the proxy pipeline touches.
type Metrics struct {
	PaymentsAttemptedTotal *prometheus.CounterVec
	PaymentsVerifiedTotal  *prometheus.CounterVec
	PaymentsSettledTotal   *prometheus.CounterVec
	PaymentsFailedTotal    *prometheus.CounterVec

	VerifyDuration *prometheus.HistogramVec
	SettleDuration *prometheus.HistogramVec

	RateLimitDeniedTotal *prometheus.CounterVec
	RateLimitActiveKeys  prometheus.Gauge

	ProxyRequestsTotal *prometheus.CounterVec
	UpstreamDuration   *prometheus.HistogramVec

	DBQueryDuration *prometheus.HistogramVec

	ArchivedRecordsTotal prometheus.Counter
}

// New creates and registers every collector against registry (pass nil for
// the process-wide default registerer).
func New(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		PaymentsAttemptedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "x402gateway_payments_attempted_total",
			Help: "Total number of requests carrying a payment payload",
		}, []string{"tenant", "endpoint"}),
		PaymentsVerifiedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "x402gateway_payments_verified_total",
			Help: "Total number of payments the facilitator verified",
		}, []string{"tenant", "endpoint"}),
		PaymentsSettledTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "x402gateway_payments_settled_total",
			Help: "Total number of payments successfully settled",
		}, []string{"tenant", "endpoint"}),
		PaymentsFailedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "x402gateway_payments_failed_total",
			Help: "Total number of payments that failed, by stage",
		}, []string{"tenant", "endpoint", "reason"}),

		VerifyDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "x402gateway_facilitator_verify_duration_seconds",
			Help:    "Facilitator /verify round-trip latency",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"outcome"}),
		SettleDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "x402gateway_facilitator_settle_duration_seconds",
			Help:    "Facilitator /settle round-trip latency",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		}, []string{"outcome"}),

		RateLimitDeniedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "x402gateway_rate_limit_denied_total",
			Help: "Total number of requests denied by the per-endpoint rate limiter or the outer global/per-IP throttle",
		}, []string{"tenant", "endpoint"}),
		RateLimitActiveKeys: factory.NewGauge(prometheus.GaugeOpts{
			Name: "x402gateway_rate_limit_active_keys",
			Help: "Number of distinct endpoint keys currently tracked by the rate limiter",
		}),

		ProxyRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "x402gateway_proxy_requests_total",
			Help: "Total proxied requests by outcome status class",
		}, []string{"tenant", "endpoint", "status"}),
		UpstreamDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "x402gateway_upstream_duration_seconds",
			Help:    "Upstream fetch latency",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		}, []string{"tenant", "endpoint"}),

		DBQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "x402gateway_db_query_duration_seconds",
			Help:    "Storage backend query duration",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"operation", "backend"}),

		ArchivedRecordsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "x402gateway_archived_records_total",
			Help: "Total number of payment/request-log rows removed by the retention job",
		}),
	}
}

// ObservePaymentAttempted records a request that carried a payment header.
func (m *Metrics) ObservePaymentAttempted(tenant, endpoint string) {
	m.PaymentsAttemptedTotal.WithLabelValues(tenant, endpoint).Inc()
}

// ObservePaymentVerified records a facilitator-approved payment.
func (m *Metrics) ObservePaymentVerified(tenant, endpoint string, d time.Duration) {
	m.PaymentsVerifiedTotal.WithLabelValues(tenant, endpoint).Inc()
	m.VerifyDuration.WithLabelValues("verified").Observe(d.Seconds())
}

// ObservePaymentVerifyFailed records a facilitator rejection.
func (m *Metrics) ObservePaymentVerifyFailed(tenant, endpoint string, d time.Duration) {
	m.PaymentsFailedTotal.WithLabelValues(tenant, endpoint, "verify_failed").Inc()
	m.VerifyDuration.WithLabelValues("rejected").Observe(d.Seconds())
}

// ObservePaymentSettled records a successful settlement.
func (m *Metrics) ObservePaymentSettled(tenant, endpoint string, d time.Duration) {
	m.PaymentsSettledTotal.WithLabelValues(tenant, endpoint).Inc()
	m.SettleDuration.WithLabelValues("settled").Observe(d.Seconds())
}

// ObservePaymentSettleFailed records a failed settlement (never surfaced to
// the client — recorded for reconciliation, spec §7 SettlementFailed).
func (m *Metrics) ObservePaymentSettleFailed(tenant, endpoint string, d time.Duration) {
	m.PaymentsFailedTotal.WithLabelValues(tenant, endpoint, "settle_failed").Inc()
	m.SettleDuration.WithLabelValues("failed").Observe(d.Seconds())
}

// ObservePaymentUpstreamFailed records a payment that was verified but whose
// upstream fetch failed before settlement was attempted.
func (m *Metrics) ObservePaymentUpstreamFailed(tenant, endpoint string) {
	m.PaymentsFailedTotal.WithLabelValues(tenant, endpoint, "upstream_failed").Inc()
}

// ObserveRateLimitDenied records a 429 from the per-endpoint limiter, or from
// the outer throttle, which passes its scope ("global" or "per_ip") as tenant
// and an empty endpoint.
func (m *Metrics) ObserveRateLimitDenied(tenant, endpoint string) {
	m.RateLimitDeniedTotal.WithLabelValues(tenant, endpoint).Inc()
}

// SetRateLimitActiveKeys reports the current size of the limiter's key set.
func (m *Metrics) SetRateLimitActiveKeys(n int) {
	m.RateLimitActiveKeys.Set(float64(n))
}

// ObserveProxyRequest records the terminal outcome of a proxied request.
func (m *Metrics) ObserveProxyRequest(tenant, endpoint, statusClass string) {
	m.ProxyRequestsTotal.WithLabelValues(tenant, endpoint, statusClass).Inc()
}

// ObserveUpstreamDuration records upstream fetch latency.
func (m *Metrics) ObserveUpstreamDuration(tenant, endpoint string, d time.Duration) {
	m.UpstreamDuration.WithLabelValues(tenant, endpoint).Observe(d.Seconds())
}

// ObserveDBQuery records a storage backend query duration.
func (m *Metrics) ObserveDBQuery(operation, backend string, duration time.Duration) {
	m.DBQueryDuration.WithLabelValues(operation, backend).Observe(duration.Seconds())
}

// ObserveArchival records the number of rows removed by one retention pass.
func (m *Metrics) ObserveArchival(count int64) {
	m.ArchivedRecordsTotal.Add(float64(count))
}
