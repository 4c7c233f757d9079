package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// proxyRequest delegates every /{tenantSlug}/{endpointSlug}/* request to the
// proxy pipeline, which runs the full resolve/rate-limit/pay/forward/settle
// state machine.
func (h *handlers) proxyRequest(w http.ResponseWriter, r *http.Request) {
	tenantSlug := chi.URLParam(r, "tenantSlug")
	endpointSlug := chi.URLParam(r, "endpointSlug")
	restPath := chi.URLParam(r, "*")
	h.pipeline.Handle(w, r, tenantSlug, endpointSlug, restPath)
}
