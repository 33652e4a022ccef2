package service

import (
	"time"

	"github.com/okian/fairlens/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of uploads waiting for a worker.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many idempotency keys are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithShardCount sets the number of session store shards.
func WithShardCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.shardCount = count
		}
	}
}

// WithMaxUploadBytes caps the accepted upload size.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// WithPreviewRows sets how many rows each snapshot previews.
func WithPreviewRows(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.previewRows = n
		}
	}
}

// WithMaxUniqueValues caps distinct values kept per column.
func WithMaxUniqueValues(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxUniqueValues = n
		}
	}
}

// WithTypeThreshold sets the share a type test must exceed.
func WithTypeThreshold(t float64) Option {
	return func(s *Service) {
		if t > 0 && t <= 1 {
			s.typeThreshold = t
		}
	}
}

// WithProfileConcurrency bounds concurrent column profiling per upload.
func WithProfileConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.profileConcurrency = n
		}
	}
}

// WithAnalysisTimeout bounds the analysis of a single upload.
func WithAnalysisTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.analysisTimeout = d
		}
	}
}

// WithJobHistory bounds how many job statuses are retained.
func WithJobHistory(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.jobHistory = n
		}
	}
}

// WithSessionTTL evicts sessions idle for longer than ttl.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl >= 0 {
			s.sessionTTL = ttl
		}
	}
}

// WithIdempotencyTTL forgets idempotency keys after ttl.
func WithIdempotencyTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl >= 0 {
			s.idempotencyTTL = ttl
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
