package proxy

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// droppedRequestHeaders are never copied to the upstream request (spec
// §4.7): hop-by-hop headers, the headers chi/net-http will set again
// itself, and the payment headers the pipeline has already consumed.
var droppedRequestHeaders = map[string]struct{}{
	"host":                {},
	"connection":          {},
	"keep-alive":          {},
	"te":                  {},
	"trailer":             {},
	"upgrade":             {},
	"content-length":      {},
	"x-payment":           {},
	"x-payment-signature": {},
	"payment-signature":   {},
}

// forwardedResponseHeader is the only upstream response header copied
// back to the caller verbatim (spec §4.7); everything else (rate-limit,
// settlement) is added separately by the pipeline.
const forwardedResponseHeader = "Content-Type"

// validateUpstreamURL parses raw and enforces the scheme/host restrictions
// spec §6.5's relaxation flags govern: by default only http/https upstreams
// are allowed, and loopback/unspecified hosts are rejected as a guard
// against an operator accidentally pointing a tenant at the gateway's own
// internal network.
func validateUpstreamURL(raw string, cfg Config) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("proxy: parse upstream url: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("proxy: upstream url missing host")
	}
	if !cfg.AllowOtherSchemesUpstream && u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("proxy: upstream scheme %q not allowed", u.Scheme)
	}
	if !cfg.AllowLocalhostUpstream && isLoopbackHost(u.Hostname()) {
		return nil, fmt.Errorf("proxy: upstream host %q not allowed", u.Hostname())
	}
	return u, nil
}

func isLoopbackHost(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && (ip.IsLoopback() || ip.IsUnspecified())
}

// buildUpstreamURL assembles the outbound URL per spec §4.7: strip the
// endpoint's trailing slash, append the caller's remaining path segments,
// merge the inbound query string, then layer the auth query parameters on
// top. The upstream's own host/scheme are never influenced by the inbound
// request.
func buildUpstreamURL(base *url.URL, restPath string, inboundQuery string, authQuery map[string]string) (*url.URL, error) {
	out := *base
	out.Path = strings.TrimSuffix(out.Path, "/") + normalizeRestPath(restPath)

	merged, err := url.ParseQuery(inboundQuery)
	if err != nil {
		merged = url.Values{}
	}
	for k, v := range authQuery {
		merged.Set(k, v)
	}
	out.RawQuery = merged.Encode()
	return &out, nil
}

func normalizeRestPath(restPath string) string {
	if restPath == "" {
		return ""
	}
	if !strings.HasPrefix(restPath, "/") {
		return "/" + restPath
	}
	return restPath
}

// copyForwardableHeaders copies every inbound header except
// droppedRequestHeaders onto dst.
func copyForwardableHeaders(dst http.Header, src http.Header) {
	for name, values := range src {
		if _, dropped := droppedRequestHeaders[strings.ToLower(name)]; dropped {
			continue
		}
		for _, v := range values {
			dst.Add(name, v)
		}
	}
}

// applyAuthHeaders overwrites dst with the tenant's resolved auth headers,
// which win on collision with any forwarded inbound header (spec §4.7).
func applyAuthHeaders(dst http.Header, authHeaders map[string]string) {
	for name, value := range authHeaders {
		dst.Set(name, value)
	}
}
