package api

import (
	"encoding/json"
	"net/http"

	"github.com/okian/fairlens/internal/domain/fairness"
	"github.com/okian/fairlens/pkg/logger"
)

// MockHandler serves the two canned analysis routes. Their bodies never
// depend on the uploaded data.
type MockHandler struct {
	logger logger.Logger
}

// NewMockHandler creates a new mock handler.
func NewMockHandler() *MockHandler {
	return &MockHandler{logger: logger.Get().Named("api-mock")}
}

// HandleAnalyzeDataset handles POST /api/analyze-dataset.
func (h *MockHandler) HandleAnalyzeDataset(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, fairness.MockAnalyzeDataset())
}

// HandleFairnessMetrics handles POST /api/fairness-metrics. The body must be
// JSON; its content is only logged.
func (h *MockHandler) HandleFairnessMetrics(w http.ResponseWriter, r *http.Request) {
	const op = "api.fairness_metrics"
	var req fairness.MetricsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	h.logger.Debug(r.Context(), "fairness metrics requested",
		logger.String("session_id", SessionFromContext(r.Context())),
		logger.Int("protected_attributes", len(req.ProtectedAttributes)),
		logger.Int("metrics", req.FairnessDimensions.Count()),
	)
	writeJSON(w, http.StatusOK, fairness.MockFairnessMetrics())
}
