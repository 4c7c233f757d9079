package apierr

import (
	"net/http"
	"strconv"

	"github.com/x402gateway/gateway/pkg/responders"
)

// body is the generic envelope used for NotFound/Misconfigured/
// UpstreamUnreachable/InternalError — the caller never learns more than
// the code and a static message (spec §7: "error string is server-side
// only" / "never reveal which of the three").
type body struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	responders.JSON(w, status, payload)
}

// WriteNotFound writes the generic 404 body spec §4.6/§7 requires: unknown
// tenant, unknown endpoint, inactive endpoint, and reserved slug must all
// look identical to a caller.
func WriteNotFound(w http.ResponseWriter) {
	writeJSON(w, NotFound.HTTPStatus(), body{Error: "not_found", Message: "resource not found"})
}

// WriteMisconfigured writes the opaque 500 body for an endpoint with no
// resolvable recipient; the operator-facing detail belongs in the server
// log, never the response.
func WriteMisconfigured(w http.ResponseWriter) {
	writeJSON(w, Misconfigured.HTTPStatus(), body{Error: "internal_error", Message: "endpoint is misconfigured"})
}

// WriteInternal writes the opaque 500 body for any uncategorized failure.
func WriteInternal(w http.ResponseWriter) {
	writeJSON(w, InternalError.HTTPStatus(), body{Error: "internal_error", Message: "internal error"})
}

// WriteUpstreamUnreachable writes the 502 body for a failed upstream fetch.
func WriteUpstreamUnreachable(w http.ResponseWriter) {
	writeJSON(w, UpstreamUnreachable.HTTPStatus(), body{Error: "upstream_unreachable", Message: "upstream request failed"})
}

// rateLimitedBody is the literal shape spec §7 pins for 429 responses.
type rateLimitedBody struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retryAfter"`
}

// WriteRateLimited writes the 429 body and the Retry-After header spec §4.1
// requires, given the number of whole seconds until the window resets.
func WriteRateLimited(w http.ResponseWriter, retryAfterSeconds int) {
	if retryAfterSeconds < 1 {
		retryAfterSeconds = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	writeJSON(w, RateLimited.HTTPStatus(), rateLimitedBody{
		Error:      "rate_limited",
		Message:    "rate limit exceeded",
		RetryAfter: retryAfterSeconds,
	})
}

// paymentInvalidBody is the literal shape spec §7 pins for a verification
// failure.
type paymentInvalidBody struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
}

// WritePaymentInvalid writes the 402 body for a facilitator-rejected payment.
func WritePaymentInvalid(w http.ResponseWriter, reason string) {
	writeJSON(w, PaymentInvalid.HTTPStatus(), paymentInvalidBody{
		Error:  "Payment verification failed",
		Reason: reason,
	})
}
