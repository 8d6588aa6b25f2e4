package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures reported to callers of the wagering core.
type ErrorKind string

const (
	KindValidation         ErrorKind = "validation"
	KindNotFound           ErrorKind = "not_found"
	KindConflict           ErrorKind = "conflict"
	KindAlreadyMatched     ErrorKind = "already_matched"
	KindInsufficientFunds  ErrorKind = "insufficient_funds"
	KindForbidden          ErrorKind = "forbidden"
	KindStorageUnavailable ErrorKind = "storage_unavailable"
	KindWriteConflict      ErrorKind = "write_conflict"
)

// Error is the typed error returned by domain services. Sentinels below only
// carry a Kind and are meant for errors.Is.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Kind. AlreadyMatched also matches ErrConflict.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind == e.Kind {
		return true
	}
	return t.Kind == KindConflict && e.Kind == KindAlreadyMatched
}

var (
	ErrValidation         = &Error{Kind: KindValidation}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrConflict           = &Error{Kind: KindConflict}
	ErrAlreadyMatched     = &Error{Kind: KindAlreadyMatched}
	ErrInsufficientFunds  = &Error{Kind: KindInsufficientFunds}
	ErrForbidden          = &Error{Kind: KindForbidden}
	ErrStorageUnavailable = &Error{Kind: KindStorageUnavailable}

	// ErrWriteConflict means a concurrent transaction invalidated this one.
	// The application layer retries it and never hands it to callers.
	ErrWriteConflict = &Error{Kind: KindWriteConflict}
)

func newError(kind ErrorKind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NewValidationError(format string, args ...any) error {
	return newError(KindValidation, format, args...)
}

func NewNotFoundError(format string, args ...any) error {
	return newError(KindNotFound, format, args...)
}

func NewConflictError(format string, args ...any) error {
	return newError(KindConflict, format, args...)
}

func NewAlreadyMatchedError(format string, args ...any) error {
	return newError(KindAlreadyMatched, format, args...)
}

func NewInsufficientFundsError(format string, args ...any) error {
	return newError(KindInsufficientFunds, format, args...)
}

func NewForbiddenError(format string, args ...any) error {
	return newError(KindForbidden, format, args...)
}

// Wrap attaches a kind to an underlying error
func Wrap(kind ErrorKind, err error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// NewStorageUnavailableError wraps a transient infrastructure failure.
func NewStorageUnavailableError(err error, format string, args ...any) error {
	return Wrap(KindStorageUnavailable, err, format, args...)
}

// NewWriteConflictError wraps a failed optimistic commit or serialization failure.
func NewWriteConflictError(err error, format string, args ...any) error {
	return Wrap(KindWriteConflict, err, format, args...)
}

// KindOf returns the kind of the first *Error in err's chain, or "" when err
// carries none.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}
