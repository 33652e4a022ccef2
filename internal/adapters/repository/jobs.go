package repository

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/okian/fairlens/internal/domain/model"
	"github.com/okian/fairlens/pkg/metrics"
)

const defaultJobHistory = 1000

type jobEntry struct {
	status model.JobStatus
	done   chan struct{}
}

// JobRegistry keeps the most recent job statuses and lets callers wait for
// a job to finish. Only finished jobs are dropped, oldest first.
type JobRegistry struct {
	mu    sync.Mutex
	jobs  map[string]*list.Element
	order *list.List // front = oldest
	limit int
	now   func() time.Time
}

// NewJobRegistry creates a registry with the given options.
func NewJobRegistry(opts ...JobOption) *JobRegistry {
	r := &JobRegistry{
		jobs:  make(map[string]*list.Element),
		order: list.New(),
		limit: defaultJobHistory,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Track registers a newly queued job.
func (r *JobRegistry) Track(_ context.Context, job model.Job) model.JobStatus { //nolint:gocritic // hugeParam: Job is a value type throughout the pipeline
	st := model.JobStatus{
		ID:          job.ID,
		SessionID:   job.SessionID,
		State:       model.JobQueued,
		SubmittedAt: job.SubmittedAt,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if el, ok := r.jobs[job.ID]; ok {
		return el.Value.(*jobEntry).status
	}
	for len(r.jobs) >= r.limit {
		if !r.evict() {
			break
		}
	}
	r.jobs[job.ID] = r.order.PushBack(&jobEntry{status: st, done: make(chan struct{})})
	metrics.UpdateJobsTracked(len(r.jobs))
	return st
}

// Forget drops a job, used when it never made it onto the queue.
func (r *JobRegistry) Forget(_ context.Context, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if el, ok := r.jobs[id]; ok {
		r.remove(el)
		metrics.UpdateJobsTracked(len(r.jobs))
	}
}

// MarkProcessing moves a job into the processing state.
func (r *JobRegistry) MarkProcessing(_ context.Context, id string, progress int) {
	r.update(id, func(st *model.JobStatus) {
		st.State = model.JobProcessing
		st.Progress = progress
	})
}

// MarkDone records the dataset a job produced.
func (r *JobRegistry) MarkDone(_ context.Context, id, datasetID string) {
	r.finish(id, model.JobDone, func(st *model.JobStatus) { st.DatasetID = datasetID })
}

// MarkSuperseded records that a newer upload won the slot.
func (r *JobRegistry) MarkSuperseded(_ context.Context, id, datasetID string) {
	r.finish(id, model.JobSuperseded, func(st *model.JobStatus) { st.DatasetID = datasetID })
}

// MarkFailed records the error that stopped a job.
func (r *JobRegistry) MarkFailed(_ context.Context, id string, err error) {
	r.finish(id, model.JobFailed, func(st *model.JobStatus) {
		if err != nil {
			st.Error = err.Error()
		}
	})
}

// Get returns the status of a job.
func (r *JobRegistry) Get(_ context.Context, id string) (model.JobStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	el, ok := r.jobs[id]
	if !ok {
		return model.JobStatus{}, ErrJobNotFound
	}
	return el.Value.(*jobEntry).status, nil
}

// Wait blocks until the job finishes or ctx is done.
func (r *JobRegistry) Wait(ctx context.Context, id string) (model.JobStatus, error) {
	r.mu.Lock()
	el, ok := r.jobs[id]
	if !ok {
		r.mu.Unlock()
		return model.JobStatus{}, ErrJobNotFound
	}
	done := el.Value.(*jobEntry).done
	r.mu.Unlock()

	select {
	case <-done:
		return r.Get(ctx, id)
	case <-ctx.Done():
		st, _ := r.Get(ctx, id)
		return st, ctx.Err()
	}
}

// Len returns the number of tracked jobs.
func (r *JobRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

func (r *JobRegistry) update(id string, fn func(*model.JobStatus)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if el, ok := r.jobs[id]; ok {
		e := el.Value.(*jobEntry)
		if !e.status.Finished() {
			fn(&e.status)
		}
	}
}

func (r *JobRegistry) finish(id string, state model.JobState, fn func(*model.JobStatus)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	el, ok := r.jobs[id]
	if !ok {
		return
	}
	e := el.Value.(*jobEntry)
	if e.status.Finished() {
		return
	}
	fn(&e.status)
	e.status.State = state
	e.status.Progress = 100
	e.status.FinishedAt = r.now()
	close(e.done)
	metrics.RecordJobOutcome(string(state))
}

// evict drops the oldest finished job and reports whether one was found.
// Unfinished jobs are never dropped, so the registry may briefly exceed its
// limit while every tracked job is queued or running. Caller holds r.mu.
func (r *JobRegistry) evict() bool {
	for el := r.order.Front(); el != nil; el = el.Next() {
		if el.Value.(*jobEntry).status.Finished() {
			r.remove(el)
			return true
		}
	}
	return false
}

func (r *JobRegistry) remove(el *list.Element) {
	if el == nil {
		return
	}
	e := r.order.Remove(el).(*jobEntry)
	delete(r.jobs, e.status.ID)
	if !e.status.Finished() {
		close(e.done)
	}
}
