package proxy

import (
	"context"
	"net/http"
	"time"

	"github.com/x402gateway/gateway/internal/storage"
	"github.com/x402gateway/gateway/internal/tenant"
)

// requestLogParams carries everything writeRequestLog needs to build one
// RequestLog row (spec §4.8's insertRequestLog).
type requestLogParams struct {
	route       tenant.ResolvedRoute
	request     *http.Request
	statusCode  int
	elapsed     time.Duration
	paid        bool
	rateLimited bool
	paymentID   *string
}

// writeRequestLog appends an audit row best-effort: a write failure is
// logged and never changes the response already sent to the caller (spec
// §4.8, §7 AuditWriteFailed). It uses a context detached from the request's
// cancellation so a client disconnect doesn't also drop the audit trail of
// the request that just happened.
func (p *Pipeline) writeRequestLog(ctx context.Context, params requestLogParams) {
	entry := storage.RequestLog{
		EndpointID:  &params.route.Endpoint.ID,
		TenantID:    &params.route.Tenant.ID,
		PaymentID:   params.paymentID,
		Path:        params.request.URL.Path,
		Method:      params.request.Method,
		StatusCode:  params.statusCode,
		ElapsedMs:   params.elapsed.Milliseconds(),
		ClientIP:    clientIP(params.request),
		UserAgent:   params.request.UserAgent(),
		IsBrowser:   isBrowserRequest(params.request),
		Paid:        params.paid,
		RateLimited: params.rateLimited,
	}
	if err := p.store.AppendRequestLog(context.WithoutCancel(ctx), entry); err != nil {
		p.logger.Error().Err(err).Msg("proxy.audit_write_failed")
	}
}

// paymentIDOrNil returns a pointer to payment.ID for AppendRequestLog's
// PaymentID field, or nil if CreatePayment never produced a usable record
// (spec §7: an audit-write failure never blocks the pipeline, but a
// RequestLog can't reference a Payment row that doesn't exist).
func paymentIDOrNil(payment storage.Payment, createErr error) *string {
	if createErr != nil || payment.ID == "" {
		return nil
	}
	id := payment.ID
	return &id
}
