// Package service wires ingestion, classification and session state into the
// operations the HTTP API exposes.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	jobqueue "github.com/okian/fairlens/internal/adapters/mq/queue"
	workerpool "github.com/okian/fairlens/internal/adapters/mq/worker"
	repository "github.com/okian/fairlens/internal/adapters/repository"
	"github.com/okian/fairlens/internal/domain/classify"
	"github.com/okian/fairlens/internal/domain/dedupe"
	"github.com/okian/fairlens/internal/domain/fairness"
	"github.com/okian/fairlens/internal/domain/ingest"
	"github.com/okian/fairlens/internal/domain/model"
	"github.com/okian/fairlens/pkg/logger"
	"github.com/okian/fairlens/pkg/metrics"
)

// Upload is a file submitted for analysis.
type Upload struct {
	SessionID      string
	Filename       string
	ContentType    string
	IdempotencyKey string
	Payload        []byte
}

// Submission is the outcome of Submit.
type Submission struct {
	Job       model.JobStatus
	Format    ingest.Format
	Duplicate bool
}

// Service implements the API dependencies for the fairness review flow.
type Service struct {
	mu sync.RWMutex

	// Core components
	sessions *repository.SessionStore
	jobs     *repository.JobRegistry
	deduper  dedupe.Deduper
	queue    *jobqueue.InMemoryQueue
	pool     *workerpool.Pool

	// Configuration
	workerCount        int
	queueSize          int
	dedupeSize         int
	shardCount         int
	maxUploadBytes     int64
	previewRows        int
	maxUniqueValues    int
	typeThreshold      float64
	profileConcurrency int
	analysisTimeout    time.Duration
	jobHistory         int
	sessionTTL         time.Duration
	idempotencyTTL     time.Duration

	// State
	started bool
	cancel  context.CancelFunc

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:        runtime.NumCPU(),
		queueSize:          1000,
		dedupeSize:         10000,
		shardCount:         8,
		maxUploadBytes:     50 << 20,
		previewRows:        classify.DefaultPreviewRows,
		maxUniqueValues:    classify.DefaultMaxUniqueValues,
		typeThreshold:      classify.DefaultTypeThreshold,
		profileConcurrency: runtime.NumCPU(),
		analysisTimeout:    30 * time.Second,
		jobHistory:         1000,
		idempotencyTTL:     24 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.logger.Info(ctx, "starting fairness service...")

	// Background loops outlive the Start call, so they get their own context.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	s.sessions = repository.NewSessionStore(runCtx,
		repository.WithShardCount(s.shardCount),
		repository.WithSessionTTL(s.sessionTTL),
	)
	s.jobs = repository.NewJobRegistry(repository.WithJobHistory(s.jobHistory))
	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
		dedupe.WithTTL(s.idempotencyTTL),
	)
	s.queue = jobqueue.NewInMemoryQueue(jobqueue.WithCapacity(s.queueSize))

	profiler := classify.New(
		classify.WithTypeThreshold(s.typeThreshold),
		classify.WithPreviewRows(s.previewRows),
		classify.WithMaxUniqueValues(s.maxUniqueValues),
		classify.WithConcurrency(s.profileConcurrency),
	)
	s.pool = workerpool.NewPool(s.workerCount, s.queue, profiler, s.sessions, s.jobs,
		workerpool.WithTimeout(s.analysisTimeout),
	)
	s.pool.Start(runCtx)

	s.started = true
	s.logger.Info(ctx, "fairness service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queue_size", s.queueSize),
		logger.Int("dedupe_size", s.dedupeSize),
		logger.Int("shards", s.shardCount),
	)
	return nil
}

// Stop drains queued uploads and shuts the service down.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping fairness service...")

	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool did not drain", logger.Error(err))
	}
	_ = s.sessions.Close()
	s.cancel()

	s.started = false
	s.logger.Info(ctx, "fairness service stopped")
}

func (s *Service) running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// Submit validates an upload and queues it for analysis. A repeated
// idempotency key returns the original job with Duplicate set.
func (s *Service) Submit(ctx context.Context, u Upload) (Submission, error) { //nolint:gocritic // hugeParam: Upload is a request value
	if !s.running() {
		return Submission{}, ErrNotStarted
	}
	if !repository.ValidSessionID(u.SessionID) {
		return Submission{}, repository.ErrInvalidSession
	}
	if len(u.Payload) == 0 {
		metrics.RecordUploadRejected("empty")
		return Submission{}, ErrEmptyUpload
	}
	if err := ingest.CheckSize(int64(len(u.Payload)), s.maxUploadBytes); err != nil {
		metrics.RecordUploadRejected("too_large")
		return Submission{}, err
	}
	format, err := ingest.DetectFormat(u.Filename, u.ContentType)
	if err != nil {
		metrics.RecordUploadRejected("unsupported_format")
		return Submission{}, err
	}
	if format == ingest.FormatXLS {
		metrics.RecordUploadRejected("unsupported_format")
		return Submission{}, fmt.Errorf("%w: re-save %s as .xlsx or .csv", ingest.ErrUnsupportedFormat, u.Filename)
	}

	jobID := uuid.NewString()
	var dedupeKey string
	if u.IdempotencyKey != "" {
		dedupeKey = u.SessionID + ":" + u.IdempotencyKey
		if original, seen := s.deduper.SeenAndRecord(ctx, dedupeKey, jobID); seen {
			metrics.RecordUploadDuplicate()
			st, err := s.jobs.Get(ctx, original)
			if err != nil {
				st = model.JobStatus{ID: original, SessionID: u.SessionID}
			}
			return Submission{Job: st, Format: format, Duplicate: true}, nil
		}
	}

	job := model.Job{
		ID:          jobID,
		SessionID:   u.SessionID,
		Seq:         s.sessions.NextSeq(ctx, u.SessionID),
		Filename:    u.Filename,
		ContentType: u.ContentType,
		Payload:     u.Payload,
		SubmittedAt: time.Now(),
	}
	st := s.jobs.Track(ctx, job)

	if err := s.queue.Enqueue(ctx, job); err != nil {
		s.jobs.Forget(ctx, job.ID)
		if dedupeKey != "" {
			s.deduper.Unrecord(ctx, dedupeKey)
		}
		metrics.RecordUploadRejected("backpressure")
		if errors.Is(err, jobqueue.ErrFull) || errors.Is(err, jobqueue.ErrClosed) {
			return Submission{}, fmt.Errorf("%w: %w", ErrBackpressure, err)
		}
		return Submission{}, err
	}

	metrics.RecordUploadAccepted(len(u.Payload))
	s.logger.Debug(ctx, "upload queued",
		logger.String("job_id", job.ID),
		logger.String("session_id", job.SessionID),
		logger.String("filename", job.Filename),
		logger.Int("bytes", len(job.Payload)),
	)
	return Submission{Job: st, Format: format}, nil
}

// Wait blocks until the job finishes, ctx ends or the analysis timeout
// passes, and returns its last known status.
func (s *Service) Wait(ctx context.Context, sessionID, jobID string) (model.JobStatus, error) {
	if !s.running() {
		return model.JobStatus{}, ErrNotStarted
	}
	if _, err := s.Job(ctx, sessionID, jobID); err != nil {
		return model.JobStatus{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.analysisTimeout)
	defer cancel()

	return s.jobs.Wait(ctx, jobID)
}

// Job returns a job status owned by the session.
func (s *Service) Job(ctx context.Context, sessionID, jobID string) (model.JobStatus, error) {
	if !s.running() {
		return model.JobStatus{}, ErrNotStarted
	}
	st, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return model.JobStatus{}, err
	}
	if st.SessionID != sessionID {
		return model.JobStatus{}, repository.ErrJobNotFound
	}
	return st, nil
}

// Current returns the session's dataset snapshot.
func (s *Service) Current(ctx context.Context, sessionID string) (*model.Dataset, error) {
	if !s.running() {
		return nil, ErrNotStarted
	}
	return s.sessions.Current(ctx, sessionID)
}

// Clear drops the session's dataset.
func (s *Service) Clear(ctx context.Context, sessionID string) error {
	if !s.running() {
		return ErrNotStarted
	}
	return s.sessions.Clear(ctx, sessionID)
}

// Attributes returns the column descriptors with their review flags.
func (s *Service) Attributes(ctx context.Context, sessionID string) ([]model.Column, error) {
	ds, err := s.Current(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return ds.Columns, nil
}

// SetInclusion toggles whether a column takes part in the analysis.
func (s *Service) SetInclusion(ctx context.Context, sessionID, column string, included bool) (model.Column, error) {
	if !s.running() {
		return model.Column{}, ErrNotStarted
	}
	return s.sessions.SetInclusion(ctx, sessionID, column, included)
}

// Selection returns the session's fairness metric selection.
func (s *Service) Selection(ctx context.Context, sessionID string) (fairness.Selection, error) {
	if !s.running() {
		return nil, ErrNotStarted
	}
	return s.sessions.Selection(ctx, sessionID), nil
}

// SetSelection replaces the session's selection.
func (s *Service) SetSelection(ctx context.Context, sessionID string, sel fairness.Selection) (fairness.Selection, error) {
	if !s.running() {
		return nil, ErrNotStarted
	}
	return s.sessions.SetSelection(ctx, sessionID, sel)
}

// ToggleMetric flips one metric in the session's selection.
func (s *Service) ToggleMetric(ctx context.Context, sessionID, dimension, metric string) (fairness.Selection, bool, error) {
	if !s.running() {
		return nil, false, ErrNotStarted
	}
	return s.sessions.ToggleMetric(ctx, sessionID, dimension, metric)
}

// BiasReport returns the fixed bias report annotated with the session's selection.
func (s *Service) BiasReport(ctx context.Context, sessionID string) (fairness.Report, error) {
	sel, err := s.Selection(ctx, sessionID)
	if err != nil {
		return fairness.Report{}, err
	}
	r := fairness.BiasReport()
	r.Selection = sel
	return r, nil
}

// SelectionRates runs a demographic parity check on the session's dataset.
func (s *Service) SelectionRates(ctx context.Context, sessionID, attribute, outcome string, threshold float64) (*fairness.RateReport, error) {
	ds, err := s.Current(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	r, err := fairness.SelectionRates(ds, attribute, outcome, threshold)
	if err != nil {
		metrics.RecordSelectionRateCheck("error")
		return nil, err
	}
	metrics.RecordSelectionRateCheck(r.Status)
	return r, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":        s.started,
		"workerCount":    s.workerCount,
		"queueCapacity":  s.queueSize,
		"dedupeSize":     s.dedupeSize,
		"shardCount":     s.shardCount,
		"maxUploadBytes": s.maxUploadBytes,
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		sessions := s.sessions.Count(ctx)
		jobs := s.jobs.Len()

		stats["queueLength"] = queueLen
		stats["sessions"] = sessions
		stats["jobsTracked"] = jobs
		stats["idempotencyKeys"] = s.deduper.Size()

		metrics.UpdateSessions(sessions)
		metrics.UpdateJobsTracked(jobs)
		metrics.UpdateWorkerCount(s.workerCount)
	}
	return stats
}

// MaxUploadBytes is the configured upload limit.
func (s *Service) MaxUploadBytes() int64 {
	return s.maxUploadBytes
}
