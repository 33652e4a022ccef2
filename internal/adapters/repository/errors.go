package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNoDataset      = errors.New("no dataset uploaded in this session")
	ErrUnknownColumn  = errors.New("column not found in current dataset")
	ErrJobNotFound    = errors.New("job not found")
	ErrInvalidSession = errors.New("invalid session id")
)
