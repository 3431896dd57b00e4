// Package apperr defines the error kinds surfaced to clinic users.
//
// Every error leaving a service is one of these kinds, wrapped with a
// user-facing message. Callers match the kind with errors.Is and show the
// message as is.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed or out-of-policy input. Nothing was sent to the store.
	ErrValidation = errors.New("validation error")
	// ErrConflict marks a target whose state changed since it was read.
	ErrConflict = errors.New("conflict")
	// ErrStore marks a failed call to the backing store. The operation was not applied.
	ErrStore = errors.New("store error")
	// ErrConfiguration marks a specialist/specialty pair without a weekly schedule.
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrForbidden     = errors.New("forbidden")
)

// Error carries a kind and the message shown to the user.
type Error struct {
	Kind    error
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.cause
}

func Validation(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) error {
	return &Error{Kind: ErrConflict, Message: fmt.Sprintf(format, args...)}
}

func Configuration(format string, args ...any) error {
	return &Error{Kind: ErrConfiguration, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...any) error {
	return &Error{Kind: ErrForbidden, Message: fmt.Sprintf(format, args...)}
}

// Store wraps a backing store failure. The cause is kept for logs only.
func Store(op string, cause error) error {
	return &Error{Kind: ErrStore, Message: op + " failed, please retry", cause: cause}
}

// Message returns the user-facing text of err, or a generic one for
// errors that did not come through this package.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "unexpected error"
}

// Wrap converts err into a StoreError unless it already carries a kind.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return Store(op, err)
}
