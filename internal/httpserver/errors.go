package httpserver

import (
	"errors"
	"net/http"
)

// Kind is the error taxonomy every service classifies its errors into.
// Domain packages return errors classified by Kind; the HTTP boundary maps
// Kind to a status code.
type Kind string

const (
	KindValidation          Kind = "validation"
	KindUnauthenticated     Kind = "unauthenticated"
	KindForbidden           Kind = "forbidden"
	KindNotFound            Kind = "not_found"
	KindInsufficientCredits Kind = "insufficient_credits"
	KindConflict            Kind = "conflict"
	KindUpstream            Kind = "upstream"
	KindUnavailable         Kind = "unavailable"
	KindInternal            Kind = "internal"
)

// Error is a classified error carrying the taxonomy kind alongside the
// underlying cause. Handlers type-assert for *Error to pick a status code;
// anything else is treated as KindInternal.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError builds a classified error.
func NewError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// StatusFor maps a taxonomy kind to its HTTP status code.
func StatusFor(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindInsufficientCredits:
		return http.StatusPaymentRequired
	case KindConflict:
		return http.StatusConflict
	case KindUpstream:
		return http.StatusBadGateway
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// RespondClassified writes the error envelope for a classified (or unknown)
// error, attaching the request's trace id. An unclassified error is reported
// as internal. It does not log the cause.
func RespondClassified(w http.ResponseWriter, requestID string, err error) {
	var ce *Error
	if errors.As(err, &ce) {
		RespondError(w, StatusFor(ce.Kind), requestID, string(ce.Kind), ce.Message)
		return
	}
	RespondError(w, http.StatusInternalServerError, requestID, string(KindInternal), "internal error")
}
