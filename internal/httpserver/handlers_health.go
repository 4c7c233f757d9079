package httpserver

import (
	"net/http"
	"time"

	"github.com/x402gateway/gateway/pkg/responders"
)

// health reports basic liveness: the process is up and serving.
func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":    "ok",
		"uptime":    time.Since(serverStartTime).String(),
		"timestamp": time.Now().UTC(),
	}
	if h.cfg.Server.RoutePrefix != "" {
		response["routePrefix"] = h.cfg.Server.RoutePrefix
	}
	responders.JSON(w, http.StatusOK, response)
}

// ready reports readiness: the pipeline's dependencies (store, facilitator
// client, resolver) were constructed successfully at boot. The facilitator
// client itself is checked eagerly at process start, not per readiness
// probe, to avoid hammering it from an orchestrator's liveness loop.
func (h *handlers) ready(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]any{"status": "ready"}
	if h.pipeline == nil {
		status = http.StatusServiceUnavailable
		body["status"] = "not_ready"
	}
	responders.JSON(w, status, body)
}
