package api

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pitchline/pitchline/pkg/metrics"
)

// HealthDependencies defines the interface for the health handler.
type HealthDependencies interface {
	Counts() (running, queued int)
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	deps HealthDependencies
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(deps HealthDependencies) *HealthHandler {
	return &HealthHandler{deps: deps}
}

type healthResponse struct {
	Status  string `json:"status"`
	Running int    `json:"running"`
	Queued  int    `json:"queued"`
}

// HandleHealth handles GET /healthz requests.
// When the Accept header asks for Prometheus exposition formats it
// serves the metrics registry; otherwise it returns JSON liveness with
// the current admission counts.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	accept := r.Header.Get("Accept")
	if strings.Contains(accept, "application/openmetrics-text") || strings.Contains(accept, "text/plain") {
		promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}).ServeHTTP(w, r)
		return
	}

	running, queued := h.deps.Counts()
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Running: running,
		Queued:  queued,
	})
}
