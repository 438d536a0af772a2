package tier

import (
	"net/http"

	"github.com/cockroachdb/errors"
)

// Kind tags a tier error with the HTTP status it should surface as.
// It mirrors the source system's exception-as-routing-hint behavior: the
// distinction between a lookup failure and any other driver exception
// decides fallback vs no-fallback at the coordinator.
type Kind uint8

const (
	BadRequest Kind = iota
	Unauthorized
	Forbidden
	NotFound
	MethodNotAllowed
	Conflict
	NotImplemented
	ServiceUnavailable
)

func (k Kind) Status() int {
	switch k {
	case BadRequest:
		return http.StatusBadRequest
	case Unauthorized:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case MethodNotAllowed:
		return http.StatusMethodNotAllowed
	case Conflict:
		return http.StatusConflict
	case NotImplemented:
		return http.StatusNotImplemented
	case ServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error is the tagged error type that rides from driver calls up to the
// HTTP boundary. cockroachdb/errors.As recovers it at the controller.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return "tier error"
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Wrap(kind Kind, cause error, msg string) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// As recovers a *Error from err, if one is anywhere in its chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// LookupError marks a driver failure caused by a malformed request for
// that backend (bad query shape, unknown field) as opposed to an
// infrastructure failure. The coordinator routes it straight to
// BadRequest instead of attempting a fallback.
type LookupError struct {
	Cause error
}

func (e *LookupError) Error() string {
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return "lookup error"
}

func (e *LookupError) Unwrap() error { return e.Cause }

func NewLookupError(cause error) *LookupError {
	return &LookupError{Cause: cause}
}

func IsLookupError(err error) bool {
	var le *LookupError
	return errors.As(err, &le)
}
