package proxy

import (
	"context"
	"io"
	"net/http"
	"net/url"

	"github.com/x402gateway/gateway/internal/circuitbreaker"
)

// buildUpstreamRequest assembles the outbound *http.Request: the inbound
// body is passed through as-is for methods other than GET/HEAD so the
// caller's net/http machinery streams it rather than buffering it in
// memory (spec §4.7).
func buildUpstreamRequest(ctx context.Context, r *http.Request, upstreamURL *url.URL, authHeaders map[string]string) (*http.Request, error) {
	var body io.Reader
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		body = r.Body
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, upstreamURL.String(), body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.ContentLength = r.ContentLength
	}

	copyForwardableHeaders(req.Header, r.Header)
	applyAuthHeaders(req.Header, authHeaders)
	return req, nil
}

// forwardResult is the value threaded through the circuit breaker's
// Execute, which only deals in (any, error).
type forwardResult struct {
	resp *http.Response
	body []byte
}

// forward executes req against upstream, under the upstream circuit
// breaker if one is configured, reading the entire response body into
// memory: settlement (spec §4.7's Settle step) must complete before the
// response is written, so the body cannot be streamed straight through.
func forward(client *http.Client, breakers *circuitbreaker.Manager, req *http.Request) (*http.Response, []byte, error) {
	do := func() (any, error) {
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		data, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, readErr
		}
		return forwardResult{resp: resp, body: data}, nil
	}

	var result any
	var err error
	if breakers != nil {
		result, err = breakers.Execute(circuitbreaker.ServiceUpstream, do)
	} else {
		result, err = do()
	}
	if err != nil {
		return nil, nil, err
	}
	fr := result.(forwardResult)
	return fr.resp, fr.body, nil
}
