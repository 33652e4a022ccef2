// Package site serves the embedded wizard UI and the methodology docs.
package site

import (
	"context"
	"errors"
	"net/http"
)

// Error constants
var (
	ErrGenerate = errors.New("docs site generation failed")
	ErrNotFound = errors.New("docs page not found")
)

// Register attaches the wizard at / and the rendered docs at /docs/ to mux.
// It panics when the embedded docs cannot be rendered.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	docs, err := NewDocsHandler()
	if err != nil {
		panic(err)
	}

	mux.Handle("/docs/", docs)
	mux.Handle("/", NewRootHandler())
}

// RootHandler serves the wizard page and its assets.
type RootHandler struct {
	files http.Handler
}

// NewRootHandler creates a new root handler.
func NewRootHandler() *RootHandler {
	return &RootHandler{files: http.FileServer(FS())}
}

// ServeHTTP serves GET / and the static assets next to it. Unknown paths
// return 404.
func (h *RootHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.NotFound(w, r)
		return
	}
	h.files.ServeHTTP(w, r)
}
