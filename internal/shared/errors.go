package shared

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers that render results.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindStateConflict Kind = "state_conflict"
	KindNotFound      Kind = "not_found"
	KindIntegrity     Kind = "integrity"
	KindUnexpected    Kind = "unexpected"
)

// UnexpectedMessage is the only text surfaced for infrastructure failures.
const UnexpectedMessage = "An unexpected error occurred"

// Error is the typed error returned by every ledger operation.
type Error struct {
	Kind     Kind
	Message  string
	Current  string
	Required string
	Err      error
}

func (e *Error) Error() string {
	if e.Kind == KindStateConflict && e.Current != "" {
		return fmt.Sprintf("%s (current: %s, required: %s)", e.Message, e.Current, e.Required)
	}
	if e.Message == "" && e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches errors of the same kind and message so sentinel values work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == e.Message
}

// Validation builds a client-correctable error.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: sprintf(format, args...)}
}

// StateConflict reports an operation attempted in the wrong lifecycle state.
func StateConflict(message, current, required string) *Error {
	return &Error{Kind: KindStateConflict, Message: message, Current: current, Required: required}
}

// NotFound reports a missing entity.
func NotFound(entity string) *Error {
	return &Error{Kind: KindNotFound, Message: entity + " not found"}
}

// Integrity reports a deletion blocked by referential use.
func Integrity(format string, args ...any) *Error {
	return &Error{Kind: KindIntegrity, Message: sprintf(format, args...)}
}

// Unexpected wraps an infrastructure failure.
func Unexpected(err error) *Error {
	return &Error{Kind: KindUnexpected, Message: UnexpectedMessage, Err: err}
}

// KindOf returns the kind of err; untyped errors are unexpected.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}

// PublicMessage returns the text safe to show to a caller.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindUnexpected {
		return e.Error()
	}
	return UnexpectedMessage
}

func sprintf(format string, args ...any) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}

// ErrLockHeld indicates another request holds a finance lock.
var ErrLockHeld = errors.New("finance lock held")
