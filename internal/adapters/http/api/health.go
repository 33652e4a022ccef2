package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/fairlens/pkg/metrics"
)

// HealthHandler serves /healthz. The body is the Prometheus exposition of
// the service registry; a 200 doubles as the liveness signal.
type HealthHandler struct {
	exposition http.Handler
}

// NewHealthHandler creates a health handler over the service registry.
func NewHealthHandler() *HealthHandler {
	return newHealthHandler(metrics.GetRegistry())
}

func newHealthHandler(g prometheus.Gatherer) *HealthHandler {
	return &HealthHandler{
		exposition: promhttp.HandlerFor(g, promhttp.HandlerOpts{ErrorHandling: promhttp.ContinueOnError}),
	}
}

// HandleHealth handles GET /healthz requests.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.exposition.ServeHTTP(w, r)
}
