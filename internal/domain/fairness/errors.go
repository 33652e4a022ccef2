package fairness

import "errors"

// Sentinel kinds for fairness operations.
var (
	ErrUnknownDimension = errors.New("unknown fairness dimension")
	ErrUnknownMetric    = errors.New("unknown fairness metric")
	ErrUnknownColumn    = errors.New("unknown column")
	ErrNoObservations   = errors.New("no rows with both attribute and outcome")
	ErrInvalidThreshold = errors.New("threshold must be within [0, 1]")
)
