package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/x402gateway/gateway/internal/apierr"
	"github.com/x402gateway/gateway/internal/authheader"
	"github.com/x402gateway/gateway/internal/facilitator"
	"github.com/x402gateway/gateway/internal/logger"
	"github.com/x402gateway/gateway/internal/ratelimit"
	"github.com/x402gateway/gateway/internal/storage"
	"github.com/x402gateway/gateway/internal/tenant"
	"github.com/x402gateway/gateway/pkg/x402"
)

// defaultRateLimitPerSecond is used when an endpoint has no explicit
// RateLimitPerSecond configured; it matches the rate_limit_per_second
// column default of the postgres endpoints table.
const defaultRateLimitPerSecond = 5

// Handle runs the full state machine of spec §4.7 for one proxied request.
// tenantSlug and endpointSlug come from the route pattern, restPath from
// its trailing wildcard.
func (p *Pipeline) Handle(w http.ResponseWriter, r *http.Request, tenantSlug, endpointSlug, restPath string) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	route, err := p.resolver.Resolve(ctx, tenantSlug, endpointSlug)
	if err != nil {
		switch {
		case errors.Is(err, tenant.ErrRouteNotFound):
			apierr.WriteNotFound(w)
		case errors.Is(err, tenant.ErrMisconfigured):
			apierr.WriteMisconfigured(w)
		default:
			log.Error().Err(err).Msg("proxy.resolve_failed")
			apierr.WriteInternal(w)
		}
		return
	}

	rlKey := route.Tenant.Slug + "/" + route.Endpoint.Slug
	limit := route.Endpoint.RateLimitPerSecond
	if limit <= 0 {
		limit = defaultRateLimitPerSecond
	}
	if !ratelimit.Enforce(w, p.limiter, rlKey, limit, ratelimit.DefaultWindowMs, p.metrics, route.Tenant.Slug, route.Endpoint.Slug) {
		p.writeRequestLog(ctx, requestLogParams{
			route: route, request: r, statusCode: http.StatusTooManyRequests,
			elapsed: time.Since(start), rateLimited: true,
		})
		return
	}
	if p.metrics != nil {
		p.metrics.SetRateLimitActiveKeys(p.limiter.KeyCount())
	}

	testnet := route.Endpoint.Testnet || p.cfg.ForceTestnet
	requirement, err := facilitator.BuildRequirement(route.Endpoint.PriceUSD, route.PayTo, testnet, p.cfg.MaxTimeoutSeconds, p.cfg.Assets)
	if err != nil {
		log.Error().Err(err).Msg("proxy.build_requirement_failed")
		apierr.WriteMisconfigured(w)
		return
	}

	payload, parseErr := x402.ParsePaymentPayload(firstHeader(r, "X-PAYMENT-SIGNATURE", "PAYMENT-SIGNATURE"))
	if parseErr != nil {
		log.Warn().Err(parseErr).Msg("proxy.parse_payment_failed")
	}

	resourceURL := p.resourceURL(r, route.Tenant.Slug, route.Endpoint.Slug, restPath)

	if payload == nil {
		paymentRequired := x402.PaymentRequiredResponse{
			X402Version: x402.Version,
			Resource:    x402.ResourceDescriptor{URL: resourceURL, Description: route.Endpoint.Description, MimeType: "application/json"},
			Accepts:     []x402.PaymentRequirement{requirement},
		}
		p.respondPaywall(w, r, route, paymentRequired, resourceURL)
		p.writeRequestLog(ctx, requestLogParams{route: route, request: r, statusCode: http.StatusPaymentRequired, elapsed: time.Since(start)})
		return
	}
	if p.metrics != nil {
		p.metrics.ObservePaymentAttempted(route.Tenant.Slug, route.Endpoint.Slug)
	}

	verifyStart := time.Now()
	verifyResult := p.facilitator.Verify(ctx, *payload, requirement)
	if !verifyResult.IsValid {
		if p.metrics != nil {
			p.metrics.ObservePaymentVerifyFailed(route.Tenant.Slug, route.Endpoint.Slug, time.Since(verifyStart))
		}
		apierr.WritePaymentInvalid(w, verifyResult.InvalidReason)
		p.writeRequestLog(ctx, requestLogParams{route: route, request: r, statusCode: http.StatusPaymentRequired, elapsed: time.Since(start)})
		return
	}
	if p.metrics != nil {
		p.metrics.ObservePaymentVerified(route.Tenant.Slug, route.Endpoint.Slug, time.Since(verifyStart))
	}

	payloadJSON, _ := json.Marshal(payload)
	payment, createErr := p.store.CreatePayment(ctx, storage.Payment{
		EndpointID:     &route.Endpoint.ID,
		TenantID:       &route.Tenant.ID,
		PayerAddress:   verifyResult.Payer,
		AmountUSD:      route.Endpoint.PriceUSD,
		Network:        requirement.Network,
		Status:         storage.PaymentVerified,
		PaymentPayload: payloadJSON,
		RequestPath:    r.URL.Path,
		RequestMethod:  r.Method,
	})
	if createErr != nil {
		log.Error().Err(createErr).Msg("proxy.audit_write_failed")
	}

	authResult, diagnostics, err := authheader.Build(
		authheader.Kind(route.Endpoint.AuthKind),
		route.Endpoint.AuthConfig,
		p.secrets,
		p.secretLookup(ctx, route.Tenant.ID),
	)
	if err != nil {
		log.Error().Err(err).Msg("proxy.auth_header_build_failed")
		apierr.WriteMisconfigured(w)
		return
	}
	for _, d := range diagnostics {
		log.Warn().Str("secret", d.Name).Msg("proxy.unresolved_secret_reference")
	}

	upstreamBase, err := validateUpstreamURL(route.Endpoint.UpstreamURL, p.cfg)
	if err != nil {
		log.Error().Err(err).Msg("proxy.invalid_upstream_url")
		apierr.WriteMisconfigured(w)
		return
	}
	upstreamURL, err := buildUpstreamURL(upstreamBase, restPath, r.URL.RawQuery, authResult.QueryParams)
	if err != nil {
		log.Error().Err(err).Msg("proxy.build_upstream_url_failed")
		apierr.WriteMisconfigured(w)
		return
	}

	upstreamReq, err := buildUpstreamRequest(ctx, r, upstreamURL, authResult.Headers)
	if err != nil {
		log.Error().Err(err).Msg("proxy.build_upstream_request_failed")
		apierr.WriteInternal(w)
		return
	}

	upstreamStart := time.Now()
	upstreamResp, body, fetchErr := forward(p.upstream, p.breakers, upstreamReq)
	if p.metrics != nil {
		p.metrics.ObserveUpstreamDuration(route.Tenant.Slug, route.Endpoint.Slug, time.Since(upstreamStart))
	}
	if fetchErr != nil {
		log.Warn().Err(fetchErr).Msg("proxy.upstream_fetch_failed")
		if createErr == nil {
			if err := p.store.UpdatePaymentStatus(ctx, payment.ID, storage.PaymentFailed, "", nil, fetchErr.Error()); err != nil {
				log.Error().Err(err).Msg("proxy.audit_write_failed")
			}
		}
		if p.metrics != nil {
			p.metrics.ObservePaymentUpstreamFailed(route.Tenant.Slug, route.Endpoint.Slug)
		}
		apierr.WriteUpstreamUnreachable(w)
		p.writeRequestLog(ctx, requestLogParams{
			route: route, request: r, statusCode: http.StatusBadGateway,
			elapsed: time.Since(start), paid: true, paymentID: paymentIDOrNil(payment, createErr),
		})
		return
	}
	// upstreamResp.Body is already drained and closed inside forward(); it is
	// only read here for its status/headers, not its body stream.
	settled, settlement := p.settle(ctx, route, payload, requirement, payment, createErr)

	respondUpstream(w, upstreamResp, body, settled, settlement)
	p.writeRequestLog(ctx, requestLogParams{
		route: route, request: r, statusCode: upstreamResp.StatusCode,
		elapsed: time.Since(start), paid: true, paymentID: paymentIDOrNil(payment, createErr),
	})
	if p.metrics != nil {
		p.metrics.ObserveProxyRequest(route.Tenant.Slug, route.Endpoint.Slug, statusClass(upstreamResp.StatusCode))
	}
}

// settle runs the Settle step only if the request is still live (spec §9:
// "if settlement has not yet been issued when cancellation occurs, the
// payment record remains in verified"). Once issued, it runs on a context
// detached from the caller's cancellation — settlement must not be
// abandoned mid-flight just because the client went away.
func (p *Pipeline) settle(ctx context.Context, route tenant.ResolvedRoute, payload *x402.PaymentPayload, requirement x402.PaymentRequirement, payment storage.Payment, createErr error) (bool, x402.SettleResponse) {
	log := logger.FromContext(ctx)
	if ctx.Err() != nil {
		return false, x402.SettleResponse{}
	}

	settleCtx := context.WithoutCancel(ctx)
	settleStart := time.Now()
	settlement := p.facilitator.Settle(settleCtx, *payload, requirement)

	if settlement.Success {
		if p.metrics != nil {
			p.metrics.ObservePaymentSettled(route.Tenant.Slug, route.Endpoint.Slug, time.Since(settleStart))
		}
		if createErr == nil {
			settlementJSON, _ := json.Marshal(settlement)
			if err := p.store.UpdatePaymentStatus(settleCtx, payment.ID, storage.PaymentSettled, settlement.Transaction, settlementJSON, ""); err != nil {
				log.Error().Err(err).Msg("proxy.audit_write_failed")
			}
		}
		return true, settlement
	}

	if p.metrics != nil {
		p.metrics.ObservePaymentSettleFailed(route.Tenant.Slug, route.Endpoint.Slug, time.Since(settleStart))
	}
	if createErr == nil {
		if err := p.store.UpdatePaymentStatus(settleCtx, payment.ID, storage.PaymentFailed, "", nil, settlement.ErrorReason); err != nil {
			log.Error().Err(err).Msg("proxy.audit_write_failed")
		}
	}
	return false, settlement
}

// resourceURL builds the URL embedded in the 402 document's resource
// descriptor (spec §4.4.6), preferring the configured BaseURL over the
// inbound Host header so it is stable across proxies/load balancers.
func (p *Pipeline) resourceURL(r *http.Request, tenantSlug, endpointSlug, restPath string) string {
	base := p.cfg.BaseURL
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		base = scheme + "://" + r.Host
	}
	url := trimTrailingSlash(base) + "/" + tenantSlug + "/" + endpointSlug
	if restPath != "" {
		url += normalizeRestPath(restPath)
	}
	return url
}

func trimTrailingSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}

func firstHeader(r *http.Request, names ...string) string {
	for _, name := range names {
		if v := r.Header.Get(name); v != "" {
			return v
		}
	}
	return ""
}

func statusClass(status int) string {
	return strconv.Itoa(status/100) + "xx"
}
