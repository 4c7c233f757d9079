package proxy

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/x402gateway/gateway/internal/apierr"
	"github.com/x402gateway/gateway/internal/logger"
	"github.com/x402gateway/gateway/internal/paywall"
	"github.com/x402gateway/gateway/internal/tenant"
	"github.com/x402gateway/gateway/pkg/x402"
)

// respondPaywall writes the no-payment branch: HTML for a browser caller,
// the bare PaymentRequiredResponse JSON otherwise (spec §4.7).
func (p *Pipeline) respondPaywall(w http.ResponseWriter, r *http.Request, route tenant.ResolvedRoute, paymentRequired x402.PaymentRequiredResponse, resourceURL string) {
	if !isBrowserRequest(r) {
		body, err := paywall.RenderJSON(paywall.Request{PaymentRequired: paymentRequired})
		if err != nil {
			logger.FromContext(r.Context()).Error().Err(err).Msg("proxy.render_paywall_failed")
			apierr.WriteInternal(w)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write(body)
		return
	}

	body, err := paywall.RenderHTML(paywall.Request{
		EndpointName:       route.Endpoint.Name,
		EndpointSlug:       route.Endpoint.Slug,
		Description:        route.Endpoint.Description,
		Theme:              route.Endpoint.BrandingTheme,
		WalletConnectID:    firstNonEmpty(route.Endpoint.WalletConnectProjectID, p.cfg.WalletConnectProjectID),
		CustomHTMLTemplate: route.Endpoint.CustomHTMLTemplate,
		ResourceURL:        resourceURL,
		PriceUSD:           route.Endpoint.PriceUSD,
		PayTo:              route.PayTo,
		Testnet:            route.Endpoint.Testnet || p.cfg.ForceTestnet,
		PaymentRequired:    paymentRequired,
	})
	if err != nil {
		logger.FromContext(r.Context()).Error().Err(err).Msg("proxy.render_paywall_failed")
		apierr.WriteInternal(w)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusPaymentRequired)
	_, _ = w.Write(body)
}

// respondUpstream writes the terminal success branch: the upstream's status
// and body verbatim, Content-Type forwarded, and the settlement headers if
// settlement succeeded (spec §4.7).
func respondUpstream(w http.ResponseWriter, upstreamResp *http.Response, body []byte, settled bool, settlement x402.SettleResponse) {
	if ct := upstreamResp.Header.Get(forwardedResponseHeader); ct != "" {
		w.Header().Set(forwardedResponseHeader, ct)
	}
	if settled {
		if data, err := json.Marshal(settlement); err == nil {
			encoded := base64.StdEncoding.EncodeToString(data)
			w.Header().Set("X-Payment-Response", encoded)
			w.Header().Set("Payment-Response", encoded)
		}
	}
	w.WriteHeader(upstreamResp.StatusCode)
	_, _ = w.Write(body)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
