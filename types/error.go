package types

import "fmt"

// ErrorCode represents a unified error code across the engine.
type ErrorCode string

// Turn-level error codes. These abort a turn before any agent is invoked.
const (
	ErrNotFound        ErrorCode = "NOT_FOUND"
	ErrAccessDenied    ErrorCode = "ACCESS_DENIED"
	ErrInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	ErrQuotaExceeded   ErrorCode = "QUOTA_EXCEEDED"
	ErrNeedsUpgrade    ErrorCode = "NEEDS_UPGRADE"
	ErrUnauthorized    ErrorCode = "UNAUTHORIZED"
	ErrInternalError   ErrorCode = "INTERNAL_ERROR"
)

// Per-agent error codes. These never abort a turn; they surface as
// status=error entries in the per-agent response list.
const (
	ErrTimeout         ErrorCode = "TIMEOUT"
	ErrProviderError   ErrorCode = "PROVIDER_ERROR"
	ErrInvalidResponse ErrorCode = "INVALID_RESPONSE"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
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

// GetErrorCode extracts the error code from an error. Returns an empty
// code for plain errors.
func GetErrorCode(err error) ErrorCode {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return ""
}

// IsCode reports whether err is a *Error carrying the given code.
func IsCode(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code
}
