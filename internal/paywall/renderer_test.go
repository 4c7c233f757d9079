package paywall

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/x402gateway/gateway/pkg/x402"
)

func testPaymentRequired() x402.PaymentRequiredResponse {
	return x402.PaymentRequiredResponse{
		X402Version: x402.Version,
		Resource:    x402.ResourceDescriptor{URL: "https://gw.example.com/acme/weather", Description: "weather data", MimeType: "application/json"},
		Accepts: []x402.PaymentRequirement{
			{Scheme: x402.SchemeExact, Network: "eip155:8453", Amount: "10000", PayTo: "0xpayto", MaxTimeoutSeconds: 300, Asset: "0xusdc"},
		},
	}
}

func TestRenderJSONMarshalsPaymentRequiredVerbatim(t *testing.T) {
	req := Request{PaymentRequired: testPaymentRequired()}
	body, err := RenderJSON(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var decoded x402.PaymentRequiredResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Accepts[0].Amount != "10000" {
		t.Errorf("Amount = %q, want 10000", decoded.Accepts[0].Amount)
	}
}

func TestRenderHTMLDefaultTemplateEmbedsConfigMeta(t *testing.T) {
	req := Request{
		EndpointName:    "Weather API",
		Description:     "premium weather data",
		PriceUSD:        "0.01",
		ResourceURL:     "https://gw.example.com/acme/weather",
		PaymentRequired: testPaymentRequired(),
	}

	body, err := RenderHTML(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	html := string(body)

	if !strings.Contains(html, `name="x-paywall-config"`) {
		t.Fatal("expected default template to embed x-paywall-config meta tag")
	}
	if !strings.Contains(html, "$0.01") {
		t.Errorf("expected formatted price $0.01 in body, got: %s", html)
	}

	meta := strings.Index(html, `name="x-paywall-config"`)
	start := meta + strings.Index(html[meta:], `content="`) + len(`content="`)
	end := start + strings.Index(html[start:], `"`)
	encoded := html[start:end]

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("decode config: %v", err)
	}
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		t.Fatalf("unmarshal config: %v", err)
	}
	if cfg.PaymentRequired.Accepts[0].Amount != "10000" {
		t.Errorf("embedded config amount = %q, want 10000", cfg.PaymentRequired.Accepts[0].Amount)
	}
}

func TestRenderHTMLCustomTemplateReplacesMarker(t *testing.T) {
	req := Request{
		CustomHTMLTemplate: "<html><body>pay here: {{payment-config}} and again {{payment-config}}</body></html>",
		PaymentRequired:    testPaymentRequired(),
	}

	body, err := RenderHTML(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	html := string(body)

	if strings.Contains(html, customConfigMarker) {
		t.Fatal("expected every marker occurrence to be replaced")
	}
	if strings.Count(html, "pay here:") != 1 || !strings.Contains(html, "and again") {
		t.Fatalf("custom template structure was altered: %s", html)
	}
}

func TestDisplayPriceFormatsPerSpecRule(t *testing.T) {
	cases := map[string]string{
		"0.01": "0.01",
		"1.50": "1.50",
		"0.001": "0.001",
	}
	for input, want := range cases {
		if got := displayPrice(input); got != want {
			t.Errorf("displayPrice(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestDisplayPriceFallsBackToRawOnMalformedInput(t *testing.T) {
	if got := displayPrice("not-a-number"); got != "not-a-number" {
		t.Errorf("displayPrice(invalid) = %q, want raw passthrough", got)
	}
}
