// Package config defines service configuration and its loading.
//
// Conventions:
// - Defaults live in New; Load layers file and env on top.
// - Keys use snake_case koanf tags and map 1:1 to FAIRLENS_* env vars.
package config

import (
	"runtime"
)

// Default limits mirrored from the upload widget.
const (
	defaultMaxUploadBytes = 50 << 20
	defaultPreviewRows    = 5
	defaultUniqueValues   = 10
	defaultTypeThreshold  = 0.8
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the slog handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory analysis job queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of analysis workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize bounds the idempotency-key cache.
	DedupeSize int `koanf:"dedupe_size"`

	// ShardCount configures the number of shards in the session store.
	ShardCount int `koanf:"shard_count"`

	// MaxUploadBytes rejects larger uploads with 413.
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`

	// PreviewRows is the number of rows kept in a dataset snapshot preview.
	PreviewRows int `koanf:"preview_rows"`

	// MaxUniqueValues caps the distinct values reported per categorical column.
	MaxUniqueValues int `koanf:"max_unique_values"`

	// TypeThreshold is the share of values that must agree on a type.
	TypeThreshold float64 `koanf:"type_threshold"`

	// AnalysisTimeoutMS bounds a single job and ?wait=true uploads.
	AnalysisTimeoutMS int `koanf:"analysis_timeout_ms"`

	// JobHistorySize caps how many finished jobs stay queryable.
	JobHistorySize int `koanf:"job_history_size"`

	// ProfileConcurrency limits parallel column profiling per dataset.
	ProfileConcurrency int `koanf:"profile_concurrency"`

	// SessionTTLMinutes evicts idle sessions; 0 keeps them for the process lifetime.
	SessionTTLMinutes int `koanf:"session_ttl_minutes"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":9080",
		QueueSize:          1_000,
		WorkerCount:        runtime.NumCPU(),
		DedupeSize:         10_000,
		ShardCount:         8,
		MaxUploadBytes:     defaultMaxUploadBytes,
		PreviewRows:        defaultPreviewRows,
		MaxUniqueValues:    defaultUniqueValues,
		TypeThreshold:      defaultTypeThreshold,
		AnalysisTimeoutMS:  30_000,
		JobHistorySize:     1_000,
		ProfileConcurrency: runtime.NumCPU(),
		SessionTTLMinutes:  120,
	}
}
