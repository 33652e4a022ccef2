package api

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static/dashboard.html
var dashboardFiles embed.FS

// dashboardHandler serves the ops page that polls /stats and /healthz to
// chart queue depth, sessions and upload outcomes.
type dashboardHandler struct {
	files fs.FS
}

func newDashboardHandler() *dashboardHandler {
	sub, err := fs.Sub(dashboardFiles, "static")
	if err != nil {
		panic(err)
	}
	return &dashboardHandler{files: sub}
}

// HandleDashboard handles GET /dashboard requests.
func (h *dashboardHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	http.ServeFileFS(w, r, h.files, "dashboard.html")
}
