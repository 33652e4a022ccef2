package wizardrun

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/okian/fairlens/internal/adapters/http/api"
	"github.com/okian/fairlens/internal/domain/fairness"
	"github.com/okian/fairlens/internal/domain/model"
)

// maxErrorBody bounds how much of a failed response ends up in an error.
const maxErrorBody = 512

// Client talks to the fairness API on behalf of one or more sessions.
type Client struct {
	http    *http.Client
	baseURL string
}

// NewClient creates a client with the given per-request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// UploadAck is the acknowledgement of POST /api/datasets.
type UploadAck struct {
	Status    string          `json:"status"`
	Duplicate bool            `json:"duplicate"`
	JobID     string          `json:"job_id"`
	SessionID string          `json:"session_id"`
	Format    string          `json:"format"`
	Job       model.JobStatus `json:"job"`
}

// AttributeList is the response of GET /api/attributes.
type AttributeList struct {
	Attributes []model.Column `json:"attributes"`
	Protected  int            `json:"protected"`
	Included   int            `json:"included"`
}

// Health checks GET /healthz.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", "", nil, "", http.StatusOK, nil)
}

// Upload sends filename as a multipart upload.
func (c *Client) Upload(ctx context.Context, session, filename string, payload []byte) (UploadAck, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return UploadAck{}, err
	}
	if _, err := part.Write(payload); err != nil {
		return UploadAck{}, err
	}
	if err := mw.Close(); err != nil {
		return UploadAck{}, err
	}

	var ack UploadAck
	err = c.do(ctx, http.MethodPost, "/api/datasets", session, &body, mw.FormDataContentType(), http.StatusAccepted, &ack)
	return ack, err
}

// Job fetches the status of an upload.
func (c *Client) Job(ctx context.Context, session, jobID string) (model.JobStatus, error) {
	var st model.JobStatus
	err := c.do(ctx, http.MethodGet, "/api/jobs/"+url.PathEscape(jobID), session, nil, "", http.StatusOK, &st)
	return st, err
}

// WaitJob polls the job until it reaches a terminal state.
func (c *Client) WaitJob(ctx context.Context, session, jobID string) (model.JobStatus, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		st, err := c.Job(ctx, session, jobID)
		if err != nil {
			return st, err
		}
		if st.Finished() {
			return st, nil
		}
		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Current fetches the session's dataset snapshot.
func (c *Client) Current(ctx context.Context, session string) (*model.Dataset, error) {
	var ds model.Dataset
	if err := c.do(ctx, http.MethodGet, "/api/datasets/current", session, nil, "", http.StatusOK, &ds); err != nil {
		return nil, err
	}
	return &ds, nil
}

// Attributes lists the session's columns.
func (c *Client) Attributes(ctx context.Context, session string) (AttributeList, error) {
	var out AttributeList
	err := c.do(ctx, http.MethodGet, "/api/attributes", session, nil, "", http.StatusOK, &out)
	return out, err
}

// SelectionRates runs the parity check for attribute against outcome.
func (c *Client) SelectionRates(ctx context.Context, session, attribute, outcome string, threshold float64) (*fairness.RateReport, error) {
	req := map[string]any{"attribute": attribute, "outcome": outcome, "threshold": threshold}
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	var rep fairness.RateReport
	err = c.do(ctx, http.MethodPost, "/api/fairness/selection-rates", session, bytes.NewReader(data), "application/json", http.StatusOK, &rep)
	if err != nil {
		return nil, err
	}
	return &rep, nil
}

// BiasReport fetches the bias-metrics view.
func (c *Client) BiasReport(ctx context.Context, session string) (*fairness.Report, error) {
	var rep fairness.Report
	if err := c.do(ctx, http.MethodGet, "/api/bias-metrics", session, nil, "", http.StatusOK, &rep); err != nil {
		return nil, err
	}
	return &rep, nil
}

func (c *Client) do(ctx context.Context, method, path, session string, body io.Reader, contentType string, want int, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if session != "" {
		req.Header.Set(api.SessionHeader, session)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: %s %s: %d %s", ErrUnexpectedStatus, method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
