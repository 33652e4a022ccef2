package repository

import "time"

// Option applies a configuration option to the SessionStore.
type Option func(*SessionStore)

// WithShardCount sets how many independently locked shards hold sessions.
func WithShardCount(n int) Option {
	return func(s *SessionStore) {
		if n > 0 {
			s.shardCount = n
		}
	}
}

// WithSessionTTL evicts sessions idle for longer than ttl. Zero keeps them forever.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *SessionStore) {
		if ttl >= 0 {
			s.ttl = ttl
		}
	}
}

// WithMetricsUpdateInterval sets the interval for background metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(s *SessionStore) {
		if interval > 0 {
			s.metricsUpdateInterval = interval
		}
	}
}

// WithClock replaces time.Now, used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *SessionStore) {
		if now != nil {
			s.now = now
		}
	}
}

// JobOption applies a configuration option to the JobRegistry.
type JobOption func(*JobRegistry)

// WithJobHistory bounds how many job statuses are retained.
func WithJobHistory(n int) JobOption {
	return func(r *JobRegistry) {
		if n > 0 {
			r.limit = n
		}
	}
}
