package wizardrun

import "errors"

var (
	ErrInvalidConfig    = errors.New("invalid wizard run configuration")
	ErrUnhealthy        = errors.New("service is not healthy")
	ErrUnexpectedStatus = errors.New("unexpected response status")
	ErrJobFailed        = errors.New("analysis job did not complete")
	ErrVerification     = errors.New("verification failed")
)
