package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/fairlens/internal/domain/model"
)

// AttributeDependencies defines the attribute review operations.
type AttributeDependencies interface {
	Attributes(ctx context.Context, sessionID string) ([]model.Column, error)
	SetInclusion(ctx context.Context, sessionID, column string, included bool) (model.Column, error)
}

// AttributesHandler serves the attribute review table.
type AttributesHandler struct {
	deps AttributeDependencies
}

// NewAttributesHandler creates a new attributes handler.
func NewAttributesHandler(deps AttributeDependencies) *AttributesHandler {
	return &AttributesHandler{deps: deps}
}

type attributesResponse struct {
	Attributes []model.Column `json:"attributes"`
	Protected  int            `json:"protected"`
	Included   int            `json:"included"`
}

type inclusionRequest struct {
	Included *bool `json:"included"`
}

// HandleList handles GET /api/attributes.
func (h *AttributesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_attributes"
	cols, err := h.deps.Attributes(r.Context(), SessionFromContext(r.Context()))
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	resp := attributesResponse{Attributes: cols}
	for _, c := range cols {
		if c.IsProtected {
			resp.Protected++
		}
		if c.Included {
			resp.Included++
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandlePatch handles PATCH /api/attributes/{name} with {"included": bool}.
func (h *AttributesHandler) HandlePatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.patch_attribute"
	var req inclusionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.Included == nil {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	col, err := h.deps.SetInclusion(r.Context(), SessionFromContext(r.Context()), chi.URLParam(r, "name"), *req.Included)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, col)
}
