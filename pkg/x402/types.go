// Package x402 implements the wire types and amount arithmetic of the x402
// v2 "exact" payment scheme over EVM networks (CAIP-2 eip155 chains,
// EIP-3009 transferWithAuthorization payloads). It holds no transport logic;
// internal/facilitator performs the verify/settle HTTP calls using these
// types.
package x402

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/x402gateway/gateway/internal/money"
)

// ResourceDescriptor identifies the resource a payment is being requested
// for, carried in both the 402 response and the payer's payload.
type ResourceDescriptor struct {
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

// PaymentRequirement is the ephemeral per-request statement of what payment
// would satisfy a resource (spec §3).
type PaymentRequirement struct {
	Scheme            string         `json:"scheme"`
	Network           string         `json:"network"`
	Amount            string         `json:"amount"` // atomic units, decimal string
	Asset             string         `json:"asset"`
	PayTo             string         `json:"payTo"`
	MaxTimeoutSeconds int            `json:"maxTimeoutSeconds"`
	Extra             map[string]any `json:"extra,omitempty"`
}

// EVMAuthorization is the EIP-3009 transferWithAuthorization payload signed
// by the payer's wallet.
type EVMAuthorization struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`
	ValidAfter  string `json:"validAfter"`
	ValidBefore string `json:"validBefore"`
	Nonce       string `json:"nonce"`
}

// EVMPayload is the scheme-specific inner payload for the "exact" EVM scheme.
type EVMPayload struct {
	Signature     string           `json:"signature"`
	Authorization EVMAuthorization `json:"authorization"`
}

// PaymentPayload is what a client sends in the X-PAYMENT-SIGNATURE /
// PAYMENT-SIGNATURE header, base64-encoded (spec §6.2).
type PaymentPayload struct {
	X402Version int                 `json:"x402Version"`
	Resource    *ResourceDescriptor `json:"resource,omitempty"`
	Accepted    PaymentRequirement  `json:"accepted"`
	Payload     json.RawMessage     `json:"payload"`
}

// PaymentRequiredResponse is the JSON body of a 402 response to a
// programmatic client (spec §4.4.6).
type PaymentRequiredResponse struct {
	X402Version int                  `json:"x402Version"`
	Resource    ResourceDescriptor   `json:"resource"`
	Accepts     []PaymentRequirement `json:"accepts"`
}

// VerifyResponse is the facilitator's answer to a /verify call.
type VerifyResponse struct {
	IsValid       bool   `json:"isValid"`
	InvalidReason string `json:"invalidReason,omitempty"`
	Payer         string `json:"payer,omitempty"`
}

// SettleResponse is the facilitator's answer to a /settle call, and also the
// shape base64-encoded into the X-Payment-Response/Payment-Response headers.
type SettleResponse struct {
	Success     bool   `json:"success"`
	Transaction string `json:"transaction,omitempty"`
	Network     string `json:"network,omitempty"`
	Payer       string `json:"payer,omitempty"`
	ErrorReason string `json:"errorReason,omitempty"`
}

// VerifyRequest is the JSON body POSTed to the facilitator's /verify RPC.
type VerifyRequest struct {
	X402Version         int                `json:"x402Version"`
	PaymentPayload      PaymentPayload     `json:"paymentPayload"`
	PaymentRequirements PaymentRequirement `json:"paymentRequirements"`
}

// SettleRequest is the JSON body POSTed to the facilitator's /settle RPC.
type SettleRequest struct {
	X402Version         int                `json:"x402Version"`
	PaymentPayload      PaymentPayload     `json:"paymentPayload"`
	PaymentRequirements PaymentRequirement `json:"paymentRequirements"`
}

// ParsePaymentPayload decodes a base64-encoded PaymentPayload from the value
// of an X-PAYMENT-SIGNATURE/PAYMENT-SIGNATURE header. It never panics or
// returns an exception-like error to a caller that must keep serving the
// request: an absent header yields (nil, nil), a malformed one (nil, err),
// and in both cases the caller treats the payment as missing, logging err as
// a diagnostic (spec §4.4.1).
func ParsePaymentPayload(headerValue string) (*PaymentPayload, error) {
	raw := strings.TrimSpace(headerValue)
	if raw == "" {
		return nil, nil
	}

	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("x402: decode base64 payment header: %w", err)
		}
	}

	var payload PaymentPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("x402: parse payment payload: %w", err)
	}
	return &payload, nil
}

// ExtractPayer derives the paying address when the facilitator's verify
// response omits one, searching the inner payload in the fallback order
// spec §4.4.5 specifies. It never fails — an unmatched payload yields
// "unknown".
func ExtractPayer(payload *PaymentPayload) string {
	if payload == nil || len(payload.Payload) == 0 {
		return "unknown"
	}

	var generic map[string]json.RawMessage
	if err := json.Unmarshal(payload.Payload, &generic); err != nil {
		return "unknown"
	}

	if from := stringField(generic, "from"); from != "" {
		return from
	}
	if auth, ok := generic["authorization"]; ok {
		var authFields map[string]json.RawMessage
		if err := json.Unmarshal(auth, &authFields); err == nil {
			if from := stringField(authFields, "from"); from != "" {
				return from
			}
		}
	}
	if sender := stringField(generic, "sender"); sender != "" {
		return sender
	}
	if payer := stringField(generic, "payer"); payer != "" {
		return payer
	}
	return "unknown"
}

func stringField(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// AtomicAmount is the result of converting a USD price to the atomic-unit
// stablecoin representation the wire format carries (spec §4.4.2).
type AtomicAmount struct {
	Asset  string
	Amount string // decimal string, atomic units
	Extra  map[string]any
}

// UsdToStable converts a USD decimal amount to its atomic-unit stablecoin
// equivalent, selecting the asset address for the requested network.
// amount = floor(usd * 10^6); any fraction of an atomic unit is dropped
// rather than rounded, matching the exact scheme's integer semantics.
func UsdToStable(usd string, testnet bool, mainnetAsset, testnetAsset string) (AtomicAmount, error) {
	m, err := money.FloorUSD(usd)
	if err != nil {
		return AtomicAmount{}, err
	}
	asset := mainnetAsset
	if testnet {
		asset = testnetAsset
	}
	return AtomicAmount{Asset: asset, Amount: m.ToAtomicString(), Extra: AssetExtra}, nil
}

// Network returns the CAIP-2 network identifier for the given testnet flag.
func Network(testnet bool) string {
	if testnet {
		return NetworkBaseSepolia
	}
	return NetworkBaseMainnet
}
