package dealerr

import (
	"errors"
	"fmt"
)

// Kind classifies a business-rule violation. All kinds are terminal,
// user-visible errors; none are retryable.
type Kind string

const (
	KindNotFound        Kind = "not_found"
	KindForbidden       Kind = "forbidden"
	KindInvalidState    Kind = "invalid_state"
	KindStaleVersion    Kind = "stale_version"
	KindValidation      Kind = "validation_error"
	KindImmutableRecord Kind = "immutable_record"
	KindInternal        Kind = "internal_error"
)

// Error carries a kind plus a human-readable message.
type Error struct {
	Kind    Kind
	Message string
	wrapped error
}

func (e *Error) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.wrapped
}

// NotFound covers both a missing entity and a caller lacking visibility;
// the two are intentionally indistinguishable.
func NotFound(format string, args ...interface{}) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...interface{}) error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

func InvalidState(format string, args ...interface{}) error {
	return &Error{Kind: KindInvalidState, Message: fmt.Sprintf(format, args...)}
}

func StaleVersion(format string, args ...interface{}) error {
	return &Error{Kind: KindStaleVersion, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func ImmutableRecord(format string, args ...interface{}) error {
	return &Error{Kind: KindImmutableRecord, Message: fmt.Sprintf(format, args...)}
}

// Internal wraps an infrastructure failure (e.g. a rolled-back multi-row
// write) without leaking its detail to the caller.
func Internal(msg string, err error) error {
	return &Error{Kind: KindInternal, Message: msg, wrapped: err}
}

// KindOf returns the kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
