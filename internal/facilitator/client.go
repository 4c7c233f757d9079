// Package facilitator implements the HTTP client for the x402 facilitator's
// verify/settle RPCs (C4), the boundary service the proxy pipeline calls
// after parsing a payment payload and before it settles one.
package facilitator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/x402gateway/gateway/internal/circuitbreaker"
	"github.com/x402gateway/gateway/internal/logger"
	"github.com/x402gateway/gateway/internal/rpcutil"
	"github.com/x402gateway/gateway/pkg/x402"
)

// Client calls a single facilitator's /verify and /settle RPCs over HTTP.
// Safe for concurrent use — it holds no per-call mutable state. Outcome
// metrics are the proxy pipeline's responsibility (it carries the
// tenant/endpoint labels); this client only performs the RPC.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breakers   *circuitbreaker.Manager
}

// New builds a facilitator Client. breakers may be nil for pass-through
// (no circuit breaking), which tests rely on.
func New(baseURL string, timeout time.Duration, breakers *circuitbreaker.Manager) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		breakers: breakers,
	}
}

// Verify calls the facilitator's /verify RPC. Any transport or decode
// failure is mapped onto VerifyResponse{IsValid:false} rather than returned
// as an error — the pipeline's only signal is the response body (spec
// §4.4.4: "the client never throws to callers").
func (c *Client) Verify(ctx context.Context, payload x402.PaymentPayload, requirement x402.PaymentRequirement) x402.VerifyResponse {
	resp, err := c.call(ctx, circuitbreaker.ServiceFacilitatorVerify, "/verify", x402.VerifyRequest{
		X402Version:         x402.Version,
		PaymentPayload:      payload,
		PaymentRequirements: requirement,
	})
	if err != nil {
		logger.FromContext(ctx).Warn().Err(err).Msg("facilitator.verify_failed")
		return x402.VerifyResponse{IsValid: false, InvalidReason: "facilitator unavailable"}
	}

	var result x402.VerifyResponse
	if err := json.Unmarshal(resp, &result); err != nil {
		return x402.VerifyResponse{IsValid: false, InvalidReason: "malformed facilitator response"}
	}
	if result.Payer == "" {
		result.Payer = x402.ExtractPayer(&payload)
	}
	return result
}

// Settle calls the facilitator's /settle RPC. Like Verify, it never returns
// an error to the caller — failures collapse into SettleResponse{Success:false}
// (spec §4.4.4).
func (c *Client) Settle(ctx context.Context, payload x402.PaymentPayload, requirement x402.PaymentRequirement) x402.SettleResponse {
	resp, err := c.call(ctx, circuitbreaker.ServiceFacilitatorSettle, "/settle", x402.SettleRequest{
		X402Version:         x402.Version,
		PaymentPayload:      payload,
		PaymentRequirements: requirement,
	})
	if err != nil {
		logger.FromContext(ctx).Warn().Err(err).Msg("facilitator.settle_failed")
		return x402.SettleResponse{Success: false, ErrorReason: "facilitator unavailable"}
	}

	var result x402.SettleResponse
	if err := json.Unmarshal(resp, &result); err != nil {
		return x402.SettleResponse{Success: false, ErrorReason: "malformed facilitator response"}
	}
	return result
}

// call POSTs body as JSON to path under the breaker for service, with a
// bounded retry on transient transport errors, and returns the raw response
// bytes. The circuit breaker and retry wrapper compose: an open breaker
// fails fast without ever reaching rpcutil.WithRetry.
func (c *Client) call(ctx context.Context, service circuitbreaker.ServiceType, path string, reqBody any) ([]byte, error) {
	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("facilitator: marshal request: %w", err)
	}

	do := func() (any, error) {
		return rpcutil.WithRetry(ctx, func() ([]byte, error) {
			httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
			if err != nil {
				return nil, fmt.Errorf("facilitator: build request: %w", err)
			}
			httpReq.Header.Set("Content-Type", "application/json")

			httpResp, err := c.httpClient.Do(httpReq)
			if err != nil {
				return nil, fmt.Errorf("facilitator: %s request: %w", path, err)
			}
			defer httpResp.Body.Close()

			body, err := io.ReadAll(httpResp.Body)
			if err != nil {
				return nil, fmt.Errorf("facilitator: read response: %w", err)
			}

			if httpResp.StatusCode != http.StatusOK {
				return nil, fmt.Errorf("facilitator: %s returned status %d: %s", path, httpResp.StatusCode, truncate(body, 500))
			}
			return body, nil
		})
	}

	var exec func() (any, error) = do
	if c.breakers != nil {
		exec = func() (any, error) {
			return c.breakers.Execute(service, do)
		}
	}

	result, err := exec()
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n])
}
