package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted   = errors.New("service not started")
	ErrBackpressure = errors.New("analysis queue is full, retry later")
	ErrEmptyUpload  = errors.New("upload has no content")
)
