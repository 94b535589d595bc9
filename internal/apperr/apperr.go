// Package apperr is the error taxonomy shared by the gates, the handlers and
// the HTTP error boundary. Every error that reaches the boundary is converted
// into an *Error; anything unrecognised becomes KindInternal.
package apperr

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

type Kind uint8

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthenticated
	KindForbidden
	KindConflict
	KindNotFound
	KindInvalidCredentials
	KindAlreadySubmitted
	KindRateLimited
	KindRouteNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindAlreadySubmitted:
		return "already_submitted"
	case KindRateLimited:
		return "rate_limited"
	case KindRouteNotFound:
		return "route_not_found"
	default:
		return "internal_error"
	}
}

// Status is the HTTP status reported for the kind. Conflict, NotFound and
// InvalidCredentials deliberately share 400.
func (k Kind) Status() int {
	switch k {
	case KindValidation, KindConflict, KindNotFound, KindInvalidCredentials, KindAlreadySubmitted:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindRouteNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message"`
}

type Error struct {
	Kind    Kind
	Message string
	Fields  []FieldError

	// cause always carries a stack trace recorded where the Error was built.
	cause error
}

func (e *Error) Error() string {
	return e.Kind.String() + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

func (e *Error) Status() int {
	return e.Kind.Status()
}

// Stack renders the cause with its recorded stack frames.
func (e *Error) Stack() string {
	if e.cause == nil {
		return ""
	}
	return fmt.Sprintf("%+v", e.cause)
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, cause: errors.New(message)}
}

func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, cause: errors.WithStack(err)}
}

func Internal(err error) *Error {
	return Wrap(KindInternal, err, "Internal Server Error")
}

// Validation builds a KindValidation error whose message lists one entry per failing field.
func Validation(fields []FieldError) *Error {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f.Field+" "+f.Message)
	}
	e := New(KindValidation, strings.Join(parts, "; "))
	e.Fields = fields
	return e
}

func From(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	return From(err).Kind
}
