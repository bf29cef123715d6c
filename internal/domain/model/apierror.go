package model

import (
	"fmt"
	"net/http"
)

// ErrorKind is the closed error taxonomy surfaced to UI consumers. Codes sent by
// the server in a structured error body are carried as-is, so values outside
// the constants below can appear.
type ErrorKind string

const (
	ErrNetwork      ErrorKind = "NETWORK_ERROR"
	ErrRequest      ErrorKind = "REQUEST_FAILED"
	ErrValidation   ErrorKind = "VALIDATION_ERROR"
	ErrUnauthorized ErrorKind = "UNAUTHORIZED"
	ErrForbidden    ErrorKind = "FORBIDDEN"
	ErrRateLimited  ErrorKind = "RATE_LIMITED"
	ErrInternal     ErrorKind = "INTERNAL_ERROR"
)

// Known reports whether k is one of the client-side error kinds above.
func (k ErrorKind) Known() bool {
	switch k {
	case ErrNetwork, ErrRequest, ErrValidation, ErrUnauthorized, ErrForbidden, ErrRateLimited, ErrInternal:
		return true
	}
	return false
}

// KindForStatus maps an HTTP status code with no structured error body to an
// ErrorKind. Unlisted statuses fall back to ErrRequest.
func KindForStatus(status int) ErrorKind {
	switch {
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return ErrValidation
	case status == http.StatusUnauthorized:
		return ErrUnauthorized
	case status == http.StatusForbidden:
		return ErrForbidden
	case status == http.StatusTooManyRequests:
		return ErrRateLimited
	case status >= http.StatusInternalServerError:
		return ErrInternal
	default:
		return ErrRequest
	}
}

// APIError is the error half of a normalized Response.
type APIError struct {
	Code    ErrorKind `json:"code"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches another *APIError by code, so errors.Is(err, &APIError{Code: ErrUnauthorized}) works.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	return ok && t.Code == e.Code
}
