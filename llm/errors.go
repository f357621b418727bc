package llm

import (
	"errors"
)

// Request errors carry a retry classification: the client retries
// transient failures with backoff and gives up immediately on fatal
// ones. Unclassified errors are treated as fatal.

type classifiedError struct {
	err       error
	transient bool
}

func (e *classifiedError) Error() string { return e.err.Error() }
func (e *classifiedError) Unwrap() error { return e.err }

// NewTransientError marks err as retryable.
func NewTransientError(err error) error {
	return &classifiedError{err: err, transient: true}
}

// NewFatalError marks err as permanent.
func NewFatalError(err error) error {
	return &classifiedError{err: err}
}

// IsTransient reports whether err is classified as retryable.
func IsTransient(err error) bool {
	var ce *classifiedError
	return errors.As(err, &ce) && ce.transient
}

// IsFatal reports whether err is classified as permanent.
func IsFatal(err error) bool {
	var ce *classifiedError
	return errors.As(err, &ce) && !ce.transient
}
