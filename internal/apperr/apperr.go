// Package apperr defines the failures surfaced to API callers. Each carries the
// HTTP status it maps to and a human-readable detail.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an application error
type Kind int

const (
	KindUnauthorized Kind = iota + 1
	KindValidation
	KindNotFound
	KindConflict
)

// Error is a caller-facing failure
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Detail + ": " + e.Err.Error()
	}
	return e.Detail
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Status returns the HTTP status code for the error
func (e *Error) Status() int {
	switch e.Kind {
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Unauthorized covers bad, missing or expired credentials and ownership mismatches
func Unauthorized(detail string) *Error {
	return &Error{Kind: KindUnauthorized, Detail: detail}
}

// Validation covers rejected input
func Validation(detail string) *Error {
	return &Error{Kind: KindValidation, Detail: detail}
}

// NotFound covers references to absent records
func NotFound(detail string) *Error {
	return &Error{Kind: KindNotFound, Detail: detail}
}

// Conflict covers uniqueness violations
func Conflict(detail string) *Error {
	return &Error{Kind: KindConflict, Detail: detail}
}

// Wrap attaches a cause to the error
func (e *Error) Wrap(err error) *Error {
	return &Error{Kind: e.Kind, Detail: e.Detail, Err: err}
}

// Is reports whether err is an application error of the given kind
func Is(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}
