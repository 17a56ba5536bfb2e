package models

import (
	"context"
	"errors"
	"fmt"
)

// Error codes used for tier failures and API responses.
const (
	ErrCodeTimeout             = "TIMEOUT"
	ErrCodeCanceled            = "CANCELED"
	ErrCodeNetwork             = "NETWORK_ERROR"
	ErrCodeHTTPStatus          = "HTTP_STATUS"
	ErrCodeNonHTML             = "NON_HTML_CONTENT"
	ErrCodeInsufficientContent = "INSUFFICIENT_CONTENT"
	ErrCodeJavaScriptRequired  = "JAVASCRIPT_REQUIRED"
	ErrCodeBackendUnavailable  = "BACKEND_UNAVAILABLE"

	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeRateLimited  = "RATE_LIMITED"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ExtractError is the internal error type carrying an error code.
// StatusCode is set when the failure came with an HTTP status.
type ExtractError struct {
	Code       string
	Message    string
	StatusCode int
	Err        error // wrapped original error
}

func (e *ExtractError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExtractError) Unwrap() error {
	return e.Err
}

// NewExtractError creates a new ExtractError.
func NewExtractError(code, message string, err error) *ExtractError {
	return &ExtractError{Code: code, Message: message, Err: err}
}

// NewStatusError reports an HTTP status the tier cannot use.
func NewStatusError(status int) *ExtractError {
	return &ExtractError{
		Code:       ErrCodeHTTPStatus,
		Message:    fmt.Sprintf("HTTP %d", status),
		StatusCode: status,
	}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *ExtractError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}

// CodeOf returns the code of the first ExtractError in err's chain,
// classifying bare context errors on the way.
func CodeOf(err error) string {
	var ee *ExtractError
	if errors.As(err, &ee) {
		return ee.Code
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ErrCodeTimeout
	case errors.Is(err, context.Canceled):
		return ErrCodeCanceled
	default:
		return ErrCodeNetwork
	}
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var ee *ExtractError
	if errors.As(err, &ee) {
		return ee.StatusCode
	}
	return 0
}

// CategorizeError wraps raw errors into typed ExtractErrors.
func CategorizeError(err error, msg string) *ExtractError {
	var ee *ExtractError
	if errors.As(err, &ee) {
		return ee
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewExtractError(ErrCodeTimeout, "timeout", err)
	case errors.Is(err, context.Canceled):
		return NewExtractError(ErrCodeCanceled, "canceled", err)
	default:
		return NewExtractError(ErrCodeNetwork, msg, err)
	}
}
