package apperr

import (
	"errors"
	"net/http"
)

type Kind string

const (
	KindValidation   Kind = "validation_error"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindPayment      Kind = "payment_verification_failed"
	KindInvalidState Kind = "invalid_state"
)

// Error is a failure the HTTP layer reports to the client as-is.
type Error struct {
	Kind    Kind
	Message string
	Status  int
	Fields  []string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind Kind, status int, msg string) *Error {
	return &Error{Kind: kind, Message: msg, Status: status}
}

func Validation(msg string, fields ...string) *Error {
	e := newError(KindValidation, http.StatusBadRequest, msg)
	e.Fields = fields
	return e
}

func Unauthorized(msg string) *Error {
	return newError(KindUnauthorized, http.StatusUnauthorized, msg)
}

func Forbidden(msg string) *Error {
	return newError(KindForbidden, http.StatusForbidden, msg)
}

func NotFound(msg string) *Error {
	return newError(KindNotFound, http.StatusNotFound, msg)
}

// Conflict reports a client-caused clash such as a duplicate username.
func Conflict(msg string) *Error {
	return newError(KindConflict, http.StatusBadRequest, msg)
}

// Misconfigured is a Conflict caused by server configuration, reported as 500.
func Misconfigured(msg string) *Error {
	return newError(KindConflict, http.StatusInternalServerError, msg)
}

func PaymentVerificationFailed(msg string) *Error {
	return newError(KindPayment, http.StatusBadRequest, msg)
}

func InvalidState(msg string) *Error {
	return newError(KindInvalidState, http.StatusBadRequest, msg)
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// StatusOf maps err to an HTTP status; errors outside the taxonomy are 500.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return http.StatusInternalServerError
}
