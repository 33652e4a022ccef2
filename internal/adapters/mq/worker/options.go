package worker

import (
	"time"

	"github.com/okian/fairlens/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithDecoder replaces ingest.Decode, mostly for tests.
func WithDecoder(fn DecodeFunc) Option {
	return func(w *InMemoryWorker) {
		if fn != nil {
			w.decode = fn
		}
	}
}

// WithTimeout bounds decoding plus profiling of a single upload.
func WithTimeout(d time.Duration) Option {
	return func(w *InMemoryWorker) {
		if d > 0 {
			w.timeout = d
		}
	}
}

// WithIDGenerator sets how dataset IDs are minted.
func WithIDGenerator(fn func() string) Option {
	return func(w *InMemoryWorker) {
		if fn != nil {
			w.newID = fn
		}
	}
}

// WithClock replaces time.Now, used by tests.
func WithClock(now func() time.Time) Option {
	return func(w *InMemoryWorker) {
		if now != nil {
			w.now = now
		}
	}
}
