package api

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	service "github.com/okian/fairlens/internal/app"
	"github.com/okian/fairlens/internal/domain/model"
)

// Upload transport.
const (
	IdempotencyHeader = "Idempotency-Key"
	FilenameHeader    = "X-Filename"
	uploadField       = "file"

	// multipartOverhead covers boundaries and part headers around the file.
	multipartOverhead = 1 << 20
)

// DatasetDependencies defines the upload and snapshot operations.
type DatasetDependencies interface {
	Submit(ctx context.Context, u service.Upload) (service.Submission, error)
	Wait(ctx context.Context, sessionID, jobID string) (model.JobStatus, error)
	Job(ctx context.Context, sessionID, jobID string) (model.JobStatus, error)
	Current(ctx context.Context, sessionID string) (*model.Dataset, error)
	Clear(ctx context.Context, sessionID string) error
}

// DatasetsHandler handles uploads, snapshots and job polling.
type DatasetsHandler struct {
	deps           DatasetDependencies
	maxUploadBytes int64
}

// NewDatasetsHandler creates a new datasets handler.
func NewDatasetsHandler(deps DatasetDependencies, maxUploadBytes int64) *DatasetsHandler {
	return &DatasetsHandler{deps: deps, maxUploadBytes: maxUploadBytes}
}

// HandleUpload handles POST /api/datasets. The file is read from the "file"
// multipart field, or from the raw body named by X-Filename or ?filename=.
// With ?wait=true the response is the finished snapshot.
func (h *DatasetsHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	const op = "api.upload_dataset"
	session := SessionFromContext(r.Context())

	u, err := h.readUpload(w, r)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	u.SessionID = session
	u.IdempotencyKey = r.Header.Get(IdempotencyHeader)

	sub, err := h.deps.Submit(r.Context(), u)
	if err != nil {
		writeFailure(w, op, err)
		return
	}

	ack := jobResponse{
		Status:      string(sub.Job.State),
		Duplicate:   sub.Duplicate,
		JobID:       sub.Job.ID,
		SessionID:   session,
		Format:      string(sub.Format),
		FormatLabel: sub.Format.Describe(),
		Job:         sub.Job,
	}
	if sub.Duplicate {
		ack.Status = "duplicate"
		writeJSON(w, http.StatusOK, ack)
		return
	}

	wait, _ := strconv.ParseBool(r.URL.Query().Get("wait"))
	if !wait {
		writeJSON(w, http.StatusAccepted, ack)
		return
	}

	st, err := h.deps.Wait(r.Context(), session, sub.Job.ID)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			ack.Status = string(st.State)
			ack.Job = st
			writeJSON(w, http.StatusAccepted, ack)
			return
		}
		writeFailure(w, op, err)
		return
	}
	switch st.State {
	case model.JobFailed:
		writeError(w, http.StatusBadRequest, "bad_file", WrapKind(op, ErrAnalysis, errors.New(st.Error)))
		return
	case model.JobSuperseded:
		writeFailure(w, op, NewKind(op, ErrSuperseded))
		return
	}

	ds, err := h.deps.Current(r.Context(), session)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	// A newer upload may have replaced the slot after this job finished.
	if ds.ID != st.DatasetID {
		writeFailure(w, op, NewKind(op, ErrSuperseded))
		return
	}
	writeJSON(w, http.StatusOK, ds)
}

func (h *DatasetsHandler) readUpload(w http.ResponseWriter, r *http.Request) (service.Upload, error) {
	const op = "api.read_upload"
	limit := h.maxUploadBytes
	if limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	}

	mediaType := r.Header.Get("Content-Type")
	if strings.HasPrefix(mediaType, "multipart/") {
		return readMultipart(r, op)
	}

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		return service.Upload{}, bodyError(op, err)
	}
	name := r.Header.Get(FilenameHeader)
	if name == "" {
		name = r.URL.Query().Get("filename")
	}
	return service.Upload{Filename: name, ContentType: mediaType, Payload: payload}, nil
}

func readMultipart(r *http.Request, op string) (service.Upload, error) {
	f, hdr, err := r.FormFile(uploadField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return service.Upload{}, WrapKind(op, ErrBadRequest, errors.New(`missing "file" field`))
		}
		return service.Upload{}, bodyError(op, err)
	}
	defer func(f multipart.File) { _ = f.Close() }(f)

	payload, err := io.ReadAll(f)
	if err != nil {
		return service.Upload{}, bodyError(op, err)
	}
	return service.Upload{
		Filename:    hdr.Filename,
		ContentType: hdr.Header.Get("Content-Type"),
		Payload:     payload,
	}, nil
}

func bodyError(op string, err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return WrapKind(op, ErrTooLarge, err)
	}
	return WrapKind(op, ErrBadRequest, err)
}

// HandleCurrent handles GET /api/datasets/current.
func (h *DatasetsHandler) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	const op = "api.current_dataset"
	ds, err := h.deps.Current(r.Context(), SessionFromContext(r.Context()))
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, ds)
}

// HandleClear handles DELETE /api/datasets/current.
func (h *DatasetsHandler) HandleClear(w http.ResponseWriter, r *http.Request) {
	const op = "api.clear_dataset"
	if err := h.deps.Clear(r.Context(), SessionFromContext(r.Context())); err != nil {
		writeFailure(w, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleJob handles GET /api/jobs/{id}.
func (h *DatasetsHandler) HandleJob(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_job"
	st, err := h.deps.Job(r.Context(), SessionFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
