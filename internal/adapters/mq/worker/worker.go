// Package worker runs uploads through decoding, classification and the
// session store.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/okian/fairlens/internal/domain/ingest"
	"github.com/okian/fairlens/internal/domain/model"
	"github.com/okian/fairlens/pkg/logger"
	"github.com/okian/fairlens/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultTimeout        = 30 * time.Second
	workerShutdownTimeout = 5 * time.Second
	poolShutdownTimeout   = 30 * time.Second

	progressDecoding  = 10
	progressProfiling = 50
	progressStoring   = 90
)

// ErrTimeout marks an upload whose analysis ran past the configured limit.
var ErrTimeout = errors.New("analysis timed out")

// DecodeFunc turns raw upload bytes into a table.
type DecodeFunc func(filename, contentType string, payload []byte) (*ingest.Table, ingest.Format, error)

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Job
}

// Profiler classifies a parsed table.
type Profiler interface {
	Profile(ctx context.Context, t *ingest.Table) (*model.Dataset, error)
}

// Store receives finished datasets.
type Store interface {
	Replace(ctx context.Context, sessionID string, ds *model.Dataset) (bool, error)
}

// Tracker records job progress.
type Tracker interface {
	MarkProcessing(ctx context.Context, id string, progress int)
	MarkDone(ctx context.Context, id, datasetID string)
	MarkSuperseded(ctx context.Context, id, datasetID string)
	MarkFailed(ctx context.Context, id string, err error)
}

// Worker processes upload jobs.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for jobs read from a Queue.
type InMemoryWorker struct {
	queue    Queue
	profiler Profiler
	store    Store
	tracker  Tracker
	name     string

	decode  DecodeFunc
	timeout time.Duration
	newID   func() string
	now     func() time.Time

	// Shutdown control
	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, profiler Profiler, store Store, tracker Tracker, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    queue,
		profiler: profiler,
		store:    store,
		tracker:  tracker,
		name:     "worker",
		decode:   ingest.Decode,
		timeout:  defaultTimeout,
		newID:    uuid.NewString,
		now:      time.Now,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.processJob(ctx, job); err != nil {
				w.logger.Error(ctx, "error processing upload",
					logger.String("job_id", job.ID),
					logger.String("session_id", job.SessionID),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processJob decodes, classifies and stores one upload.
func (w *InMemoryWorker) processJob(ctx context.Context, job model.Job) error { //nolint:gocritic // hugeParam: Job is passed by value for channel semantics
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	ds, err := w.analyze(ctx, job)
	if err != nil {
		w.fail(ctx, job, err)
		return err
	}

	w.tracker.MarkProcessing(ctx, job.ID, progressStoring)
	replaced, err := w.store.Replace(ctx, job.SessionID, ds)
	if err != nil {
		err = fmt.Errorf("store dataset: %w", err)
		w.fail(ctx, job, err)
		return err
	}
	if !replaced {
		metrics.RecordStaleReplacement()
		w.tracker.MarkSuperseded(ctx, job.ID, ds.ID)
		w.logger.Info(ctx, "newer upload already in place, result discarded",
			logger.String("job_id", job.ID),
			logger.String("session_id", job.SessionID),
			logger.Int64("seq", int64(job.Seq)), //nolint:gosec // sequence numbers stay far below MaxInt64
		)
		return nil
	}

	metrics.RecordDatasetProcessed()
	w.tracker.MarkDone(ctx, job.ID, ds.ID)
	w.logger.Debug(ctx, "dataset stored",
		logger.String("job_id", job.ID),
		logger.String("dataset_id", ds.ID),
		logger.Int("rows", ds.RowCount),
		logger.Int("columns", ds.ColumnCount),
		logger.Duration("took", time.Since(start)),
	)
	return nil
}

func (w *InMemoryWorker) analyze(ctx context.Context, job model.Job) (*model.Dataset, error) { //nolint:gocritic // hugeParam: see processJob
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	w.tracker.MarkProcessing(ctx, job.ID, progressDecoding)
	parseStart := time.Now()
	table, format, err := w.decode(job.Filename, job.ContentType, job.Payload)
	metrics.RecordParseLatency(float64(time.Since(parseStart).Milliseconds()))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", job.Filename, err)
	}
	metrics.RecordDatasetRows(len(table.Rows))

	w.tracker.MarkProcessing(ctx, job.ID, progressProfiling)
	profileStart := time.Now()
	ds, err := w.profiler.Profile(ctx, table)
	metrics.RecordProfileLatency(float64(time.Since(profileStart).Milliseconds()))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w after %s", ErrTimeout, w.timeout)
		}
		return nil, fmt.Errorf("profile %s: %w", job.Filename, err)
	}

	for _, c := range ds.Columns {
		metrics.RecordColumnClassified(string(c.Type))
		if c.IsProtected {
			metrics.RecordProtectedAttribute(string(c.RiskLevel))
		}
	}

	ds.ID = w.newID()
	ds.Filename = job.Filename
	ds.Format = string(format)
	ds.Seq = job.Seq
	ds.CreatedAt = w.now()
	return ds, nil
}

func (w *InMemoryWorker) fail(ctx context.Context, job model.Job, err error) { //nolint:gocritic // hugeParam: see processJob
	metrics.RecordProcessingError()
	metrics.RecordWorkerError()
	metrics.RecordErrorByComponent("worker", errorKind(err))
	w.tracker.MarkFailed(ctx, job.ID, err)
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, ingest.ErrEmpty):
		return "empty_dataset"
	case errors.Is(err, ingest.ErrUnsupportedFormat):
		return "unsupported_format"
	case errors.Is(err, ingest.ErrWorkbook):
		return "workbook_error"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	default:
		return "processing_error"
	}
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	shutdown chan struct{}
	logger   logger.Logger
}

// NewPool creates workerCount workers sharing the same dependencies. Options
// apply to every worker; names are assigned per worker.
func NewPool(workerCount int, queue Queue, profiler Profiler, store Store, tracker Tracker, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	pool := &Pool{
		workers:  make([]*InMemoryWorker, workerCount),
		queue:    queue,
		shutdown: make(chan struct{}),
		logger:   logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		workerOpts := append([]Option{}, opts...)
		workerOpts = append(workerOpts, WithName("worker-"+strconv.Itoa(i)))
		pool.workers[i] = NewInMemoryWorker(queue, profiler, store, tracker, workerOpts...)
	}

	metrics.UpdateWorkerCount(workerCount)
	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Stop signals every worker and waits briefly for each.
func (p *Pool) Stop() {
	p.signal()
	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-time.After(workerShutdownTimeout):
		}
	}
}

// Shutdown closes the queue so buffered jobs drain, then waits for workers.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			p.signal()
			return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
		}
	}
	return nil
}

func (p *Pool) signal() {
	select {
	case <-p.shutdown:
		return
	default:
		close(p.shutdown)
	}
	for _, w := range p.workers {
		select {
		case <-w.shutdown:
		default:
			close(w.shutdown)
		}
	}
}
