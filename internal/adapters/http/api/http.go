// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/okian/fairlens/internal/adapters/repository"
	service "github.com/okian/fairlens/internal/app"
	"github.com/okian/fairlens/internal/domain/fairness"
	"github.com/okian/fairlens/internal/domain/ingest"
	"github.com/okian/fairlens/internal/domain/model"
	"github.com/okian/fairlens/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	DatasetDependencies
	AttributeDependencies
	FairnessDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	datasetsHandler  *DatasetsHandler
	attributeHandler *AttributesHandler
	fairnessHandler  *FairnessHandler
	mockHandler      *MockHandler
	dashboardHandler *dashboardHandler

	logger logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxUploadBytes int64) *Server {
	return &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(statsProvider),
		datasetsHandler:  NewDatasetsHandler(deps, maxUploadBytes),
		attributeHandler: NewAttributesHandler(deps),
		fairnessHandler:  NewFairnessHandler(deps),
		mockHandler:      NewMockHandler(),
		dashboardHandler: newDashboardHandler(),
		logger:           logger.Get().Named("api"),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/dashboard", s.dashboardHandler.HandleDashboard)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.Handle("/api/", s.Router())
}

// Router returns the chi router serving everything under /api.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Use(SessionMiddleware)
		r.Use(s.requestLogger)

		r.Post("/datasets", MetricsMiddleware(s.datasetsHandler.HandleUpload, "datasets_upload"))
		r.Get("/datasets/current", MetricsMiddleware(s.datasetsHandler.HandleCurrent, "datasets_current"))
		r.Delete("/datasets/current", MetricsMiddleware(s.datasetsHandler.HandleClear, "datasets_clear"))
		r.Get("/jobs/{id}", MetricsMiddleware(s.datasetsHandler.HandleJob, "jobs"))

		r.Get("/attributes", MetricsMiddleware(s.attributeHandler.HandleList, "attributes"))
		r.Patch("/attributes/{name}", MetricsMiddleware(s.attributeHandler.HandlePatch, "attributes_patch"))

		r.Get("/fairness/dimensions", MetricsMiddleware(s.fairnessHandler.HandleDimensions, "fairness_dimensions"))
		r.Get("/fairness/selection", MetricsMiddleware(s.fairnessHandler.HandleGetSelection, "fairness_selection"))
		r.Put("/fairness/selection", MetricsMiddleware(s.fairnessHandler.HandlePutSelection, "fairness_selection"))
		r.Post("/fairness/selection/toggle", MetricsMiddleware(s.fairnessHandler.HandleToggle, "fairness_toggle"))
		r.Post("/fairness/selection-rates", MetricsMiddleware(s.fairnessHandler.HandleSelectionRates, "fairness_selection_rates"))
		r.Get("/bias-metrics", MetricsMiddleware(s.fairnessHandler.HandleBiasMetrics, "bias_metrics"))

		r.Post("/analyze-dataset", MetricsMiddleware(s.mockHandler.HandleAnalyzeDataset, "analyze_dataset"))
		r.Post("/fairness-metrics", MetricsMiddleware(s.mockHandler.HandleFairnessMetrics, "fairness_metrics"))
	})
	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure maps upstream errors onto status codes.
func writeFailure(w http.ResponseWriter, op string, err error) {
	status, code := statusFor(err)
	writeError(w, status, code, Wrap(op, err))
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrTooLarge), errors.Is(err, ingest.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, "too_large"
	case errors.Is(err, ingest.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType, "unsupported_format"
	case errors.Is(err, service.ErrBackpressure), errors.Is(err, ErrBackpressure):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, ErrSuperseded):
		return http.StatusConflict, "superseded"
	case errors.Is(err, repository.ErrNoDataset),
		errors.Is(err, repository.ErrJobNotFound),
		errors.Is(err, repository.ErrUnknownColumn),
		errors.Is(err, fairness.ErrUnknownColumn),
		errors.Is(err, ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ErrAnalysis),
		errors.Is(err, ingest.ErrEmpty),
		errors.Is(err, ingest.ErrWorkbook):
		return http.StatusBadRequest, "bad_file"
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, service.ErrEmptyUpload),
		errors.Is(err, repository.ErrInvalidSession),
		errors.Is(err, fairness.ErrUnknownDimension),
		errors.Is(err, fairness.ErrUnknownMetric),
		errors.Is(err, fairness.ErrInvalidThreshold),
		errors.Is(err, fairness.ErrNoObservations):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// jobResponse is the acknowledgement body of an upload.
type jobResponse struct {
	Status      string          `json:"status"`
	Duplicate   bool            `json:"duplicate"`
	JobID       string          `json:"job_id"`
	SessionID   string          `json:"session_id"`
	Format      string          `json:"format,omitempty"`
	FormatLabel string          `json:"format_label,omitempty"`
	Job         model.JobStatus `json:"job"`
}
