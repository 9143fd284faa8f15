// Package errors provides structured application errors for infrastructure
// faults. Domain failures (ambiguous conventions, overlap, parse failures)
// live in domain/core as sentinel errors; AppError covers everything at the
// adapter boundary: endpoints, storage, config.
package errors

import (
	"fmt"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Cause:   appErr,
		}
	}
	return &AppError{
		Code:    CodeInternalError,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// GetCode returns the error code if it's an AppError, otherwise "UNKNOWN"
func GetCode(err error) string {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return "UNKNOWN"
}

// Predefined error codes
const (
	CodeConfigInvalid   = "CONFIG_INVALID"
	CodeStorageError    = "STORAGE_ERROR"
	CodeEndpointError   = "ENDPOINT_ERROR"
	CodeEndpointTimeout = "ENDPOINT_TIMEOUT"
	CodeRateLimited     = "RATE_LIMITED"
	CodeBudgetExceeded  = "BUDGET_EXCEEDED"
	CodeInternalError   = "INTERNAL_ERROR"
)

// Common error constructors

func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func StorageError(message string, cause error) *AppError {
	return &AppError{Code: CodeStorageError, Message: message, Cause: cause}
}

func EndpointError(endpoint string, cause error) *AppError {
	return &AppError{
		Code:    CodeEndpointError,
		Message: fmt.Sprintf("%s endpoint error", endpoint),
		Cause:   cause,
	}
}

func EndpointTimeout(endpoint string, cause error) *AppError {
	return &AppError{
		Code:    CodeEndpointTimeout,
		Message: fmt.Sprintf("%s endpoint timed out", endpoint),
		Cause:   cause,
	}
}

func RateLimited(endpoint string) *AppError {
	return New(CodeRateLimited, fmt.Sprintf("%s endpoint rate limited", endpoint))
}

func BudgetExceeded(used, cap int) *AppError {
	return New(CodeBudgetExceeded, fmt.Sprintf("token budget exceeded: %d >= %d", used, cap))
}

// IsTimeout reports whether the error carries the endpoint-timeout code
func IsTimeout(err error) bool {
	return GetCode(err) == CodeEndpointTimeout
}

// IsRateLimited reports whether the error carries the rate-limited code
func IsRateLimited(err error) bool {
	return GetCode(err) == CodeRateLimited
}
