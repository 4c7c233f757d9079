package paywall

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/x402gateway/gateway/internal/money"
)

// customConfigMarker is the literal placeholder a tenant's custom HTML
// template must contain; every occurrence is replaced with the
// base64(JSON(Config)) payload (spec §4.5). The template is otherwise
// opaque to the renderer.
const customConfigMarker = "{{payment-config}}"

// RenderJSON produces the 402 body for programmatic (non-browser) clients —
// the generatePaymentRequired document verbatim.
func RenderJSON(req Request) ([]byte, error) {
	return json.Marshal(req.PaymentRequired)
}

// RenderHTML produces the 402 body for browser clients: the tenant's custom
// template with the marker substituted, or a self-contained default page.
func RenderHTML(req Request) ([]byte, error) {
	cfg := Config{
		PaymentRequired: req.PaymentRequired,
		ResourceURL:     req.ResourceURL,
		Description:     req.Description,
		Theme:           req.Theme,
		WalletConnectID: req.WalletConnectID,
	}

	encoded, err := encodeConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("paywall: encode config: %w", err)
	}

	if req.CustomHTMLTemplate != "" {
		return []byte(strings.ReplaceAll(req.CustomHTMLTemplate, customConfigMarker, encoded)), nil
	}

	return renderDefaultTemplate(req, encoded)
}

// encodeConfig base64-encodes the JSON-serialized Config, as every paywall
// surface (meta tag, custom-template marker) embeds it.
func encodeConfig(cfg Config) (string, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// displayPrice formats an endpoint's USD price per spec §4.5: two decimal
// places at or above a cent, otherwise up to six decimals with trailing
// zeros trimmed. Falls back to the raw string on a malformed price so a
// misconfigured endpoint still renders something instead of 500ing.
func displayPrice(priceUSD string) string {
	m, err := money.ParseUSD(priceUSD)
	if err != nil {
		return priceUSD
	}
	return m.Format()
}

func renderDefaultTemplate(req Request, encodedConfig string) ([]byte, error) {
	data := defaultTemplateData{
		EndpointName:    req.EndpointName,
		Description:     req.Description,
		PriceDisplay:    displayPrice(req.PriceUSD),
		Theme:           themeOrDefault(req.Theme),
		WalletConnectID: req.WalletConnectID,
		ConfigBase64:    encodedConfig,
	}

	var buf bytes.Buffer
	if err := defaultTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("paywall: render default template: %w", err)
	}
	return buf.Bytes(), nil
}

func themeOrDefault(theme string) string {
	if theme == "" {
		return "light"
	}
	return theme
}
