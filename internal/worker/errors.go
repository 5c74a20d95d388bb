package worker

import "errors"

var (
	// ErrMalformedEvent marks a delivery whose body is not a valid notification event
	ErrMalformedEvent = errors.New("malformed event")

	// ErrDuplicateDelivery marks an event another delivery already handled
	ErrDuplicateDelivery = errors.New("duplicate delivery")
)

// RetryableError wraps transient errors that should trigger a requeue
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return "retryable error: " + e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError creates a new retryable error
func NewRetryableError(err error) error {
	return &RetryableError{Err: err}
}
