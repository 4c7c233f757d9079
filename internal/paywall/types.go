// Package paywall renders the HTML/JSON body a client sees on the no-payment
// branch of the proxy pipeline (spec §4.5). It never touches secrets or
// tenant credentials — its only dynamic inputs are the endpoint's public
// branding fields, the resolved recipient, and the payment-required
// document C4 already built.
package paywall

import "github.com/x402gateway/gateway/pkg/x402"

// Config is the object embedded into every paywall page, base64-encoded as
// JSON, whether through the default template's meta tag or a custom
// template's {{payment-config}} marker.
type Config struct {
	PaymentRequired x402.PaymentRequiredResponse `json:"paymentRequired"`
	ResourceURL     string                       `json:"resourceUrl"`
	Description     string                       `json:"description,omitempty"`
	Theme           string                       `json:"theme,omitempty"`
	WalletConnectID string                       `json:"walletConnectProjectId,omitempty"`
}

// Request holds everything the renderer needs to produce a paywall body.
// It deliberately excludes anything secret-bearing: no auth config, no
// upstream URL, no tenant credentials.
type Request struct {
	EndpointName       string
	EndpointSlug       string
	Description        string
	Theme              string
	WalletConnectID    string
	CustomHTMLTemplate string

	ResourceURL string
	PriceUSD    string
	PayTo       string
	Testnet     bool

	PaymentRequired x402.PaymentRequiredResponse
}
