package classify

import "runtime"

// Defaults used when no option overrides them.
const (
	DefaultTypeThreshold   = 0.8
	DefaultPreviewRows     = 5
	DefaultMaxUniqueValues = 10
	DefaultExamples        = 3

	// AIConfidence is the fixed overall confidence reported with every snapshot.
	AIConfidence = 0.94
)

// Option configures a Profiler.
type Option func(*Profiler)

// WithTypeThreshold sets the share of values (exclusive) a type test must
// exceed for a column to take that type.
func WithTypeThreshold(t float64) Option {
	return func(p *Profiler) {
		if t > 0 && t <= 1 {
			p.threshold = t
		}
	}
}

// WithPreviewRows sets how many leading rows are copied into the preview.
func WithPreviewRows(n int) Option {
	return func(p *Profiler) {
		if n >= 0 {
			p.previewRows = n
		}
	}
}

// WithMaxUniqueValues caps the distinct values kept per column.
func WithMaxUniqueValues(n int) Option {
	return func(p *Profiler) {
		if n > 0 {
			p.maxUnique = n
		}
	}
}

// WithConcurrency bounds how many columns are profiled at once.
func WithConcurrency(n int) Option {
	return func(p *Profiler) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

func defaultConcurrency() int {
	if n := runtime.NumCPU(); n > 0 {
		return n
	}
	return 1
}
