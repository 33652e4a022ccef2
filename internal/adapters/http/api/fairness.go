package api

import (
	"context"
	"net/http"

	"github.com/okian/fairlens/internal/domain/fairness"
)

// FairnessDependencies defines metric selection and report operations.
type FairnessDependencies interface {
	Selection(ctx context.Context, sessionID string) (fairness.Selection, error)
	SetSelection(ctx context.Context, sessionID string, sel fairness.Selection) (fairness.Selection, error)
	ToggleMetric(ctx context.Context, sessionID, dimension, metric string) (fairness.Selection, bool, error)
	BiasReport(ctx context.Context, sessionID string) (fairness.Report, error)
	SelectionRates(ctx context.Context, sessionID, attribute, outcome string, threshold float64) (*fairness.RateReport, error)
}

// FairnessHandler serves the dimension selector and the bias report.
type FairnessHandler struct {
	deps FairnessDependencies
}

// NewFairnessHandler creates a new fairness handler.
func NewFairnessHandler(deps FairnessDependencies) *FairnessHandler {
	return &FairnessHandler{deps: deps}
}

type selectionResponse struct {
	Selection fairness.Selection `json:"selection"`
	Count     int                `json:"count"`
}

type toggleRequest struct {
	Dimension string `json:"dimension"`
	Metric    string `json:"metric"`
}

type toggleResponse struct {
	selectionResponse
	Dimension string `json:"dimension"`
	Metric    string `json:"metric"`
	Selected  bool   `json:"selected"`
}

type selectionRatesRequest struct {
	Attribute string   `json:"attribute"`
	Outcome   string   `json:"outcome"`
	Threshold *float64 `json:"threshold,omitempty"`
}

// HandleDimensions handles GET /api/fairness/dimensions.
func (h *FairnessHandler) HandleDimensions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, fairness.Dimensions())
}

// HandleGetSelection handles GET /api/fairness/selection.
func (h *FairnessHandler) HandleGetSelection(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_selection"
	sel, err := h.deps.Selection(r.Context(), SessionFromContext(r.Context()))
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, selectionResponse{Selection: sel, Count: sel.Count()})
}

// HandlePutSelection handles PUT /api/fairness/selection with a
// dimension -> metrics object.
func (h *FairnessHandler) HandlePutSelection(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_selection"
	var sel fairness.Selection
	if err := decodeJSON(r, &sel); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	out, err := h.deps.SetSelection(r.Context(), SessionFromContext(r.Context()), sel)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, selectionResponse{Selection: out, Count: out.Count()})
}

// HandleToggle handles POST /api/fairness/selection/toggle.
func (h *FairnessHandler) HandleToggle(w http.ResponseWriter, r *http.Request) {
	const op = "api.toggle_metric"
	var req toggleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	sel, on, err := h.deps.ToggleMetric(r.Context(), SessionFromContext(r.Context()), req.Dimension, req.Metric)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, toggleResponse{
		selectionResponse: selectionResponse{Selection: sel, Count: sel.Count()},
		Dimension:         req.Dimension,
		Metric:            req.Metric,
		Selected:          on,
	})
}

// HandleBiasMetrics handles GET /api/bias-metrics.
func (h *FairnessHandler) HandleBiasMetrics(w http.ResponseWriter, r *http.Request) {
	const op = "api.bias_metrics"
	report, err := h.deps.BiasReport(r.Context(), SessionFromContext(r.Context()))
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// HandleSelectionRates handles POST /api/fairness/selection-rates.
func (h *FairnessHandler) HandleSelectionRates(w http.ResponseWriter, r *http.Request) {
	const op = "api.selection_rates"
	var req selectionRatesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	threshold := fairness.DefaultThreshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}
	report, err := h.deps.SelectionRates(r.Context(), SessionFromContext(r.Context()), req.Attribute, req.Outcome, threshold)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
