package queue

import "errors"

// Sentinel kinds for queue operations.
var (
	ErrClosed = errors.New("queue closed")
	ErrFull   = errors.New("queue full")
)
