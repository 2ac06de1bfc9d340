// Package apperror provides the error values the Almanac API returns to
// clients. Each carries an HTTP status, a machine-readable type and a
// message that is safe to show; anything else is reported as an internal
// error with its detail kept for the logs.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Machine-readable error types, sent as "type" in error responses.
const (
	TypeBadRequest   = "bad_request"
	TypeUnauthorized = "unauthorized"
	TypeForbidden    = "forbidden"
	TypeNotFound     = "not_found"
	TypeValidation   = "validation_error"
	TypeRateLimited  = "rate_limited"
	TypeInternal     = "internal_error"
)

const internalMessage = "An unexpected error occurred."

// AppError is an error with a client-safe message. Internal is logged and
// never sent.
type AppError struct {
	Code     int    `json:"-"`
	Type     string `json:"type"`
	Message  string `json:"message"`
	Internal error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (internal: %v)", e.Type, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Internal
}

// Response is the JSON body of every error the API returns.
type Response struct {
	Error   string `json:"error"`
	Type    string `json:"type,omitempty"`
	Message string `json:"message"`
}

func newError(code int, typ, message string) *AppError {
	return &AppError{Code: code, Type: typ, Message: message}
}

// NewBadRequest is a 400 for requests that cannot be read at all: bad JSON,
// unparseable query parameters, a missing upload.
func NewBadRequest(message string) *AppError {
	return newError(http.StatusBadRequest, TypeBadRequest, message)
}

// NewUnauthorized is a 401 for a missing or wrong admin key.
func NewUnauthorized(message string) *AppError {
	return newError(http.StatusUnauthorized, TypeUnauthorized, message)
}

// NewForbidden is a 403 for writes on a server with no admin key configured.
func NewForbidden(message string) *AppError {
	return newError(http.StatusForbidden, TypeForbidden, message)
}

func NewNotFound(message string) *AppError {
	return newError(http.StatusNotFound, TypeNotFound, message)
}

// NewValidation is a 422 for well-formed input that breaks an event rule,
// such as an end before its start or an unsupported recurrence.
func NewValidation(message string) *AppError {
	return newError(http.StatusUnprocessableEntity, TypeValidation, message)
}

func NewTooManyRequests(message string) *AppError {
	return newError(http.StatusTooManyRequests, TypeRateLimited, message)
}

// NewInternal is a 500 that hides err from the client.
func NewInternal(err error) *AppError {
	return &AppError{
		Code:     http.StatusInternalServerError,
		Type:     TypeInternal,
		Message:  internalMessage,
		Internal: err,
	}
}

// As finds an AppError anywhere in err's chain, so errors wrapped with
// fmt.Errorf("...: %w") keep their status.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// From returns the AppError in err's chain, or an internal error wrapping
// err when there is none.
func From(err error) *AppError {
	if appErr, ok := As(err); ok {
		return appErr
	}
	return NewInternal(err)
}

// SafeMessage returns the message of the AppError in err's chain, or a
// generic message that reveals nothing about err.
func SafeMessage(err error) string {
	return From(err).Message
}

// SafeCode returns the status of the AppError in err's chain, or 500.
func SafeCode(err error) int {
	return From(err).Code
}
