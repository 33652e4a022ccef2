// Package wizardrun drives the fairness wizard end to end against a running
// service: it generates synthetic applicant files, uploads them from many
// sessions at once and checks the results the API reports.
package wizardrun

import "time"

// Config holds configuration for a wizard run.
type Config struct {
	BaseURL   string        // Base URL of the service
	Sessions  int           // Number of concurrent wizard sessions
	Rows      int           // Rows per generated file
	Bias      float64       // Hiring-rate gap between the two gender groups
	Threshold float64       // Parity threshold passed to the selection-rate check
	Seed      uint64        // Seed of the first session's file
	Workers   int           // Number of sessions in flight at once
	Timeout   time.Duration // HTTP request timeout
	OutputDir string        // When set, generated files are written here
	Verbose   bool          // Log every session
}

// Stats holds run statistics.
type Stats struct {
	Sessions   int
	Uploaded   int
	Verified   int
	Failed     int
	Violations int
	Bytes      int64
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
}

// SessionResult is what one wizard session observed.
type SessionResult struct {
	SessionID string
	JobID     string
	Rows      int
	Protected []string
	Gap       float64
	Status    string
	Err       error
}
