package x402

import "errors"

// Sentinel errors for payment-payload handling. No function in this module
// returns them: ParsePaymentPayload and UsdToStable report failures as
// wrapped errors of their own.
var (
	ErrMissingPayload  = errors.New("x402: payment payload missing")
	ErrUnsupportedKind = errors.New("x402: unsupported scheme/network")
)
