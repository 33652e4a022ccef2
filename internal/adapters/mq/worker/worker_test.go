package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	queue "github.com/okian/fairlens/internal/adapters/mq/queue"
	worker "github.com/okian/fairlens/internal/adapters/mq/worker"
	"github.com/okian/fairlens/internal/domain/classify"
	"github.com/okian/fairlens/internal/domain/ingest"
	model "github.com/okian/fairlens/internal/domain/model"
	logging "github.com/okian/fairlens/pkg/logger"
)

type mockStore struct {
	mu       sync.Mutex
	datasets map[string]*model.Dataset
	reject   bool
	err      error
}

func newMockStore() *mockStore {
	return &mockStore{datasets: make(map[string]*model.Dataset)}
}

func (m *mockStore) Replace(_ context.Context, sessionID string, ds *model.Dataset) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if m.reject {
		return false, nil
	}
	m.datasets[sessionID] = ds
	return true, nil
}

func (m *mockStore) set(reject bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reject, m.err = reject, err
}

func (m *mockStore) get(sessionID string) *model.Dataset {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.datasets[sessionID]
}

type mockTracker struct {
	mu       sync.Mutex
	states   map[string]model.JobState
	progress map[string][]int
	errs     map[string]error
	finished chan string
}

func newMockTracker() *mockTracker {
	return &mockTracker{
		states:   make(map[string]model.JobState),
		progress: make(map[string][]int),
		errs:     make(map[string]error),
		finished: make(chan string, 16),
	}
}

func (m *mockTracker) MarkProcessing(_ context.Context, id string, p int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[id] = model.JobProcessing
	m.progress[id] = append(m.progress[id], p)
}

func (m *mockTracker) MarkDone(_ context.Context, id, _ string) { m.finish(id, model.JobDone, nil) }

func (m *mockTracker) MarkSuperseded(_ context.Context, id, _ string) {
	m.finish(id, model.JobSuperseded, nil)
}

func (m *mockTracker) MarkFailed(_ context.Context, id string, err error) {
	m.finish(id, model.JobFailed, err)
}

func (m *mockTracker) finish(id string, st model.JobState, err error) {
	m.mu.Lock()
	m.states[id] = st
	m.errs[id] = err
	m.mu.Unlock()
	m.finished <- id
}

func (m *mockTracker) state(id string) (model.JobState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[id], m.errs[id]
}

func (m *mockTracker) await(id string) bool {
	select {
	case got := <-m.finished:
		return got == id
	case <-time.After(2 * time.Second):
		return false
	}
}

type slowProfiler struct{ delay time.Duration }

func (p slowProfiler) Profile(ctx context.Context, _ *ingest.Table) (*model.Dataset, error) {
	select {
	case <-time.After(p.delay):
		return &model.Dataset{}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

const upload = "gender,age,score\nF,34,0.7\nM,51,0.4\nF,29,0.9\n"

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a worker wired to a real queue and classifier", t, func() {
		_ = logging.Init()

		q := queue.NewInMemoryQueue(queue.WithCapacity(8))
		store := newMockStore()
		tracker := newMockTracker()
		fixed := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)

		w := worker.NewInMemoryWorker(q, classify.New(), store, tracker,
			worker.WithName("test-worker"),
			worker.WithIDGenerator(func() string { return "ds-fixed" }),
			worker.WithClock(func() time.Time { return fixed }),
		)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When a CSV upload is processed", func() {
			job := model.Job{ID: "job-1", SessionID: "s1", Seq: 3, Filename: "people.csv", Payload: []byte(upload)}
			convey.So(q.Enqueue(ctx, job), convey.ShouldBeNil)
			convey.So(tracker.await("job-1"), convey.ShouldBeTrue)

			convey.Convey("Then the classified dataset is stored for the session", func() {
				st, err := tracker.state("job-1")
				convey.So(err, convey.ShouldBeNil)
				convey.So(st, convey.ShouldEqual, model.JobDone)

				ds := store.get("s1")
				convey.So(ds, convey.ShouldNotBeNil)
				convey.So(ds.ID, convey.ShouldEqual, "ds-fixed")
				convey.So(ds.Seq, convey.ShouldEqual, 3)
				convey.So(ds.Filename, convey.ShouldEqual, "people.csv")
				convey.So(ds.Format, convey.ShouldEqual, "csv")
				convey.So(ds.CreatedAt, convey.ShouldEqual, fixed)
				convey.So(ds.RowCount, convey.ShouldEqual, 3)
				convey.So(len(ds.Protected()), convey.ShouldEqual, 2)
			})

			convey.Convey("And progress is reported in order", func() {
				tracker.mu.Lock()
				defer tracker.mu.Unlock()
				convey.So(tracker.progress["job-1"], convey.ShouldResemble, []int{10, 50, 90})
			})
		})

		convey.Convey("When the upload cannot be decoded", func() {
			job := model.Job{ID: "job-2", SessionID: "s1", Filename: "blank.csv", Payload: []byte("\n\n")}
			convey.So(q.Enqueue(ctx, job), convey.ShouldBeNil)
			convey.So(tracker.await("job-2"), convey.ShouldBeTrue)

			convey.Convey("Then the job fails with the ingest error", func() {
				st, err := tracker.state("job-2")
				convey.So(st, convey.ShouldEqual, model.JobFailed)
				convey.So(errors.Is(err, ingest.ErrEmpty), convey.ShouldBeTrue)
				convey.So(store.get("s1"), convey.ShouldBeNil)
			})
		})

		convey.Convey("When a newer upload already holds the slot", func() {
			store.set(true, nil)
			job := model.Job{ID: "job-3", SessionID: "s1", Filename: "old.csv", Payload: []byte(upload)}
			convey.So(q.Enqueue(ctx, job), convey.ShouldBeNil)
			convey.So(tracker.await("job-3"), convey.ShouldBeTrue)

			convey.Convey("Then the job is marked superseded", func() {
				st, _ := tracker.state("job-3")
				convey.So(st, convey.ShouldEqual, model.JobSuperseded)
			})
		})

		convey.Convey("When the store fails", func() {
			store.set(false, errors.New("disk on fire"))
			job := model.Job{ID: "job-4", SessionID: "s1", Filename: "a.csv", Payload: []byte(upload)}
			convey.So(q.Enqueue(ctx, job), convey.ShouldBeNil)
			convey.So(tracker.await("job-4"), convey.ShouldBeTrue)

			convey.Convey("Then the job fails", func() {
				st, err := tracker.state("job-4")
				convey.So(st, convey.ShouldEqual, model.JobFailed)
				convey.So(err.Error(), convey.ShouldContainSubstring, "disk on fire")
			})
		})

		convey.Convey("When shutting down", func() {
			sctx, scancel := context.WithTimeout(context.Background(), time.Second)
			defer scancel()
			convey.So(w.Shutdown(sctx), convey.ShouldBeNil)
		})
	})
}

func TestWorkerTimeout(t *testing.T) {
	convey.Convey("Given a worker with a short analysis timeout", t, func() {
		_ = logging.Init()

		q := queue.NewInMemoryQueue()
		tracker := newMockTracker()
		w := worker.NewInMemoryWorker(q, slowProfiler{delay: time.Second}, newMockStore(), tracker,
			worker.WithTimeout(20*time.Millisecond),
		)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.So(q.Enqueue(ctx, model.Job{ID: "slow", SessionID: "s", Filename: "x.csv", Payload: []byte(upload)}), convey.ShouldBeNil)
		convey.So(tracker.await("slow"), convey.ShouldBeTrue)

		st, err := tracker.state("slow")
		convey.So(st, convey.ShouldEqual, model.JobFailed)
		convey.So(errors.Is(err, worker.ErrTimeout), convey.ShouldBeTrue)
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool of workers", t, func() {
		_ = logging.Init()

		q := queue.NewInMemoryQueue(queue.WithCapacity(32))
		store := newMockStore()
		tracker := newMockTracker()
		tracker.finished = make(chan string, 32)

		pool := worker.NewPool(4, q, classify.New(), store, tracker)
		convey.So(pool.Size(), convey.ShouldEqual, 4)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		pool.Start(ctx)

		sessions := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
		for i, s := range sessions {
			job := model.Job{ID: "job-" + s, SessionID: s, Seq: uint64(i + 1), Filename: s + ".csv", Payload: []byte(upload)}
			convey.So(q.Enqueue(ctx, job), convey.ShouldBeNil)
		}

		convey.Convey("When the pool shuts down", func() {
			sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer scancel()
			convey.So(pool.Shutdown(sctx), convey.ShouldBeNil)

			convey.Convey("Then every buffered upload was processed", func() {
				for _, s := range sessions {
					convey.So(store.get(s), convey.ShouldNotBeNil)
				}
				convey.So(len(tracker.finished), convey.ShouldEqual, len(sessions))
			})
		})
	})
}
