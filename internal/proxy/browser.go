package proxy

import (
	"net/http"
	"regexp"
	"strings"
)

// browserUserAgent matches the handful of tokens spec §4.7 names for
// browser detection. It is intentionally loose — the cost of misclassifying
// an API client as a browser is a slightly friendlier error page, not a
// security boundary.
var browserUserAgent = regexp.MustCompile(`(?i)Mozilla|Chrome|Safari|Firefox|Edge`)

// isBrowserRequest reports whether r should receive the HTML paywall instead
// of the JSON payment-required document (spec §4.7).
func isBrowserRequest(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "text/html") {
		return true
	}
	return browserUserAgent.MatchString(r.Header.Get("User-Agent"))
}
