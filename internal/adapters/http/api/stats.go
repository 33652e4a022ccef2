package api

import (
	"maps"
	"net/http"
	"time"
)

// StatsProvider exposes the service's runtime counters.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// StatsHandler serves GET /stats for the ops dashboard.
type StatsHandler struct {
	provider StatsProvider
	started  time.Time
	now      func() time.Time
}

// NewStatsHandler creates a stats handler. Uptime is measured from this call.
func NewStatsHandler(provider StatsProvider) *StatsHandler {
	return &StatsHandler{provider: provider, started: time.Now(), now: time.Now}
}

// HandleStats writes the provider's counters plus the handler uptime.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	out := make(map[string]interface{})
	maps.Copy(out, h.provider.GetStats())
	out["uptimeSeconds"] = int64(h.now().Sub(h.started).Seconds())
	writeJSON(w, http.StatusOK, out)
}
