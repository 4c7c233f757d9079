// Package apierr defines the closed set of machine-readable error kinds the
// proxy pipeline can produce (spec §7) and how each maps onto an HTTP status
// and a structured JSON body. No pipeline stage writes a raw error string to
// a response; every failure path is converted into one of these codes first.
package apierr

// Code is a machine-readable error identifier.
type Code string

const (
	// NotFound covers unknown tenant, unknown endpoint, inactive endpoint,
	// and reserved slugs — deliberately indistinguishable from one another
	// so existence is never leaked (spec §4.6, §7).
	NotFound Code = "not_found"

	// Misconfigured means the endpoint has no resolvable recipient address.
	Misconfigured Code = "misconfigured"

	// RateLimited means the per-endpoint sliding window rejected the request.
	RateLimited Code = "rate_limited"

	// PaymentMissing means no payment header was present; the caller gets a
	// paywall (HTML or JSON) rather than a hard error.
	PaymentMissing Code = "payment_missing"

	// PaymentInvalid means the facilitator rejected the payment payload.
	PaymentInvalid Code = "payment_invalid"

	// UpstreamUnreachable means the tenant's upstream could not be reached.
	UpstreamUnreachable Code = "upstream_unreachable"

	// SettlementFailed is recorded on the Payment row but never surfaced to
	// the client — the response was already produced (spec §7).
	SettlementFailed Code = "settlement_failed"

	// AuditWriteFailed is logged only, never surfaced (spec §7).
	AuditWriteFailed Code = "audit_write_failed"

	// InternalError is any uncategorized failure.
	InternalError Code = "internal_error"
)

// HTTPStatus maps a Code to the status spec §7 pins for it. SettlementFailed
// and AuditWriteFailed have no caller-visible status: they are terminal
// record-keeping states, not response paths, and return 0 as a sentinel a
// caller must never write.
func (c Code) HTTPStatus() int {
	switch c {
	case NotFound:
		return 404
	case Misconfigured:
		return 500
	case RateLimited:
		return 429
	case PaymentMissing, PaymentInvalid:
		return 402
	case UpstreamUnreachable:
		return 502
	case SettlementFailed, AuditWriteFailed:
		return 0
	default:
		return 500
	}
}
