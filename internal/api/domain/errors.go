package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrApplicationNotFound is returned by the store when an application id does not exist
	ErrApplicationNotFound = errors.New("application not found")

	// ErrDuplicateApplication is returned by the store when a blocking application
	// already exists for the same job and job seeker
	ErrDuplicateApplication = errors.New("application already exists for job and job seeker")

	// ErrStatusConflict is returned by the store when a conditional update finds the
	// application no longer in the expected status
	ErrStatusConflict = errors.New("application status changed concurrently")

	// ErrJobNotFound is returned by the job directory for unknown jobs
	ErrJobNotFound = errors.New("job not found")

	// ErrUserNotFound is returned by the user directory for unknown users
	ErrUserNotFound = errors.New("user not found")
)

// Kind is the closed set of failures the lifecycle engine reports to callers
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindForbidden
	KindConflict
	KindInvalidState
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NOT_FOUND"
	case KindForbidden:
		return "FORBIDDEN"
	case KindConflict:
		return "CONFLICT"
	case KindInvalidState:
		return "INVALID_STATE"
	default:
		return "INTERNAL_ERROR"
	}
}

// Error is a use case failure with a caller-safe message. Err keeps the
// underlying cause for logging and is never shown to callers.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewNotFound(message string) error {
	return &Error{Kind: KindNotFound, Message: message}
}

func NewForbidden(message string) error {
	return &Error{Kind: KindForbidden, Message: message}
}

func NewConflict(message string) error {
	return &Error{Kind: KindConflict, Message: message}
}

func NewInvalidState(message string) error {
	return &Error{Kind: KindInvalidState, Message: message}
}

// NewInternal wraps err as an internal failure with a caller-safe message
func NewInternal(message string, err error) error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// KindOf returns the kind of err, treating anything that is not an *Error as internal
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
