package facilitator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/x402gateway/gateway/pkg/x402"
)

func testRequirement() x402.PaymentRequirement {
	return x402.PaymentRequirement{
		Scheme:            x402.SchemeExact,
		Network:           x402.NetworkBaseSepolia,
		Amount:            "1000000",
		Asset:             "0xasset",
		PayTo:             "0xrecipient",
		MaxTimeoutSeconds: 300,
	}
}

func testPayload() x402.PaymentPayload {
	return x402.PaymentPayload{
		X402Version: x402.Version,
		Accepted:    testRequirement(),
		Payload:     json.RawMessage(`{"authorization":{"from":"0xpayer"}}`),
	}
}

func TestVerifySuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/verify" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(x402.VerifyResponse{IsValid: true, Payer: "0xpayer"})
	}))
	defer server.Close()

	client := New(server.URL, 2*time.Second, nil)
	result := client.Verify(context.Background(), testPayload(), testRequirement())

	if !result.IsValid {
		t.Fatalf("expected valid result, got %+v", result)
	}
	if result.Payer != "0xpayer" {
		t.Errorf("Payer = %q, want 0xpayer", result.Payer)
	}
}

func TestVerifyFallsBackToExtractedPayer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(x402.VerifyResponse{IsValid: true})
	}))
	defer server.Close()

	client := New(server.URL, 2*time.Second, nil)
	result := client.Verify(context.Background(), testPayload(), testRequirement())

	if result.Payer != "0xpayer" {
		t.Errorf("expected fallback payer extraction, got %q", result.Payer)
	}
}

func TestVerifyTransportErrorNeverPropagatesAsError(t *testing.T) {
	client := New("http://127.0.0.1:1", 50*time.Millisecond, nil)
	result := client.Verify(context.Background(), testPayload(), testRequirement())

	if result.IsValid {
		t.Fatal("expected invalid result on unreachable facilitator")
	}
	if result.InvalidReason == "" {
		t.Error("expected a non-empty invalidReason")
	}
}

func TestVerifyNonOKStatusMapsToInvalid(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"invalidReason":"signature mismatch"}`))
	}))
	defer server.Close()

	client := New(server.URL, 2*time.Second, nil)
	result := client.Verify(context.Background(), testPayload(), testRequirement())

	if result.IsValid {
		t.Fatal("expected invalid result for non-200 response")
	}
}

func TestSettleSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/settle" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(x402.SettleResponse{Success: true, Transaction: "0xtxhash"})
	}))
	defer server.Close()

	client := New(server.URL, 2*time.Second, nil)
	result := client.Settle(context.Background(), testPayload(), testRequirement())

	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if result.Transaction != "0xtxhash" {
		t.Errorf("Transaction = %q, want 0xtxhash", result.Transaction)
	}
}

func TestSettleTransportErrorNeverPropagatesAsError(t *testing.T) {
	client := New("http://127.0.0.1:1", 50*time.Millisecond, nil)
	result := client.Settle(context.Background(), testPayload(), testRequirement())

	if result.Success {
		t.Fatal("expected failure result on unreachable facilitator")
	}
	if result.ErrorReason == "" {
		t.Error("expected a non-empty errorReason")
	}
}
