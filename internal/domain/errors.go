package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors used throughout the application.
// API handlers translate these to HTTP status codes via a single mapError function.
var (
	ErrNotFound         = errors.New("not found")
	ErrSyncDisabled     = errors.New("sync is disabled by feature flag")
	ErrQueueUnavailable = errors.New("queue transport unavailable")
	ErrMalformedWindow  = errors.New("fetch window is malformed: from must precede to")
)

// TransientError marks a failure expected to succeed on retry: network
// faults, HTTP 429 and 5xx responses from the external authority system.
// The retry policy retries these; everything else surfaces immediately.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err so IsTransient reports true for it.
func Transient(format string, args ...any) error {
	return &TransientError{Err: fmt.Errorf(format, args...)}
}

// IsTransient reports whether err (or anything it wraps) is retryable.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
