package wizardrun

import "time"

// Defaults used by the CLI.
const (
	DefaultSessions  = 20
	DefaultRows      = 500
	DefaultBias      = 0.2
	DefaultThreshold = 0.1
	DefaultTimeout   = 30 * time.Second
)

// Polling configuration.
const (
	pollInterval = 100 * time.Millisecond
	rateEpsilon  = 1e-9

	directoryPermission = 0o750
	filePermission      = 0o600
)

// Columns the generator writes and the checks expect.
const (
	ColumnGender = "gender"
	ColumnHired  = "hired"
)
