package types

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unified error code across researchflow.
type ErrorCode string

// Upstream error codes
const (
	ErrInvalidRequest      ErrorCode = "INVALID_REQUEST"
	ErrUnauthorized        ErrorCode = "UNAUTHORIZED"
	ErrRateLimited         ErrorCode = "RATE_LIMITED"
	ErrUpstreamTimeout     ErrorCode = "UPSTREAM_TIMEOUT"
	ErrUpstreamError       ErrorCode = "UPSTREAM_ERROR"
	ErrInternalError       ErrorCode = "INTERNAL_ERROR"
	ErrProviderUnavailable ErrorCode = "PROVIDER_UNAVAILABLE"
)

// Research pipeline error codes
const (
	ErrBackendFetch             ErrorCode = "BACKEND_FETCH"
	ErrQueryGeneration          ErrorCode = "QUERY_GENERATION"
	ErrRerank                   ErrorCode = "RERANK"
	ErrMalformedSynthesisOutput ErrorCode = "MALFORMED_SYNTHESIS_OUTPUT"
	ErrExhaustedRetry           ErrorCode = "EXHAUSTED_RETRY"
	ErrValidation               ErrorCode = "VALIDATION"
	ErrNotFound                 ErrorCode = "NOT_FOUND"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Provider   string    `json:"provider,omitempty"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithProvider sets the provider (LLM or search backend) name.
func (e *Error) WithProvider(provider string) *Error {
	e.Provider = provider
	return e
}

// AsError finds the first *Error in err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if e, ok := AsError(err); ok {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}

// IsErrorCode reports whether err carries the given code.
func IsErrorCode(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code
}

// NewValidationError rejects caller input before it enters the pipeline.
func NewValidationError(message string) *Error {
	return NewError(ErrValidation, message).WithHTTPStatus(http.StatusBadRequest)
}

// NewNotFoundError reports a missing report, fragment, or session.
func NewNotFoundError(kind, id string) *Error {
	return NewError(ErrNotFound, fmt.Sprintf("%s %q not found", kind, id)).
		WithHTTPStatus(http.StatusNotFound)
}

// HTTPStatusError maps a non-2xx response from an upstream service.
// 429 and 5xx are retryable.
func HTTPStatusError(provider string, status int, body string) *Error {
	code := ErrUpstreamError
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		code = ErrUnauthorized
	case status == http.StatusTooManyRequests:
		code = ErrRateLimited
	case status == http.StatusGatewayTimeout:
		code = ErrUpstreamTimeout
	case status >= 400 && status < 500:
		code = ErrInvalidRequest
	}
	return NewError(code, fmt.Sprintf("%s returned status %d: %s", provider, status, body)).
		WithHTTPStatus(status).
		WithRetryable(status == http.StatusTooManyRequests || status >= 500).
		WithProvider(provider)
}
