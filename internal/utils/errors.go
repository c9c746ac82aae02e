// Package contextutils provides error handling utilities and standardized error types
// for consistent error management across the OCR backend.
package contextutils

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode represents a standardized error code for API responses
type ErrorCode string

const (
	// Request intake error codes

	// ErrorCodeMissingFile indicates that no file part was attached under the expected field
	ErrorCodeMissingFile ErrorCode = "MISSING_FILE"
	// ErrorCodeEmptyFilename indicates that a file part was attached without a filename
	ErrorCodeEmptyFilename ErrorCode = "EMPTY_FILENAME"
	// ErrorCodeInvalidInput indicates that the provided input is invalid
	ErrorCodeInvalidInput ErrorCode = "INVALID_INPUT"

	// Pipeline error codes

	// ErrorCodeImageDecode indicates that the uploaded bytes are not a readable image
	ErrorCodeImageDecode ErrorCode = "IMAGE_DECODE_FAILED"
	// ErrorCodeRecognition indicates that the OCR engine could not be invoked or failed
	ErrorCodeRecognition ErrorCode = "RECOGNITION_FAILED"
	// ErrorCodeTranslation indicates that the translation service failed
	ErrorCodeTranslation ErrorCode = "TRANSLATION_FAILED"

	// Service error codes

	// ErrorCodeServiceUnavailable indicates that a dependency is not configured or reachable
	ErrorCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrorCodeTimeout indicates that a request has timed out
	ErrorCodeTimeout ErrorCode = "REQUEST_TIMEOUT"
	// ErrorCodeInternalError indicates an internal server error
	ErrorCodeInternalError ErrorCode = "INTERNAL_SERVER_ERROR"
)

// SeverityLevel represents the severity of an error for logging and monitoring
type SeverityLevel string

const (
	// SeverityDebug indicates debug-level errors for development
	SeverityDebug SeverityLevel = "debug"
	// SeverityInfo indicates informational errors
	SeverityInfo SeverityLevel = "info"
	// SeverityWarn indicates warning-level errors
	SeverityWarn SeverityLevel = "warn"
	// SeverityError indicates error-level issues
	SeverityError SeverityLevel = "error"
	// SeverityFatal indicates fatal errors that require immediate attention
	SeverityFatal SeverityLevel = "fatal"
)

// AppError represents a structured error with code, severity, and context
type AppError struct {
	Code     ErrorCode
	Severity SeverityLevel
	Message  string
	Details  string
	Cause    error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s - %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison for errors.Is
func (e *AppError) Is(target error) bool {
	if appErr, ok := target.(*AppError); ok {
		return e.Code == appErr.Code
	}
	return false
}

// PublicMessage returns the text placed in the "error" field of a response.
// Details carry the verbatim failure text of the underlying dependency when present.
func (e *AppError) PublicMessage() string {
	if e.Details != "" {
		return e.Details
	}
	return e.Message
}

// IsClientError reports whether the error was caused by the caller's input
func (e *AppError) IsClientError() bool {
	switch e.Code {
	case ErrorCodeMissingFile, ErrorCodeEmptyFilename, ErrorCodeInvalidInput:
		return true
	}
	return false
}

// Error types for consistent error handling with associated codes and severity
var (
	ErrMissingFile = &AppError{
		Code:     ErrorCodeMissingFile,
		Severity: SeverityWarn,
		Message:  "No file uploaded under 'file' field",
	}

	ErrEmptyFilename = &AppError{
		Code:     ErrorCodeEmptyFilename,
		Severity: SeverityWarn,
		Message:  "Empty filename",
	}

	ErrInvalidInput = &AppError{
		Code:     ErrorCodeInvalidInput,
		Severity: SeverityWarn,
		Message:  "Invalid input",
	}

	ErrImageDecode = &AppError{
		Code:     ErrorCodeImageDecode,
		Severity: SeverityWarn,
		Message:  "Failed to decode image",
	}

	ErrRecognition = &AppError{
		Code:     ErrorCodeRecognition,
		Severity: SeverityError,
		Message:  "Text recognition failed",
	}

	ErrTranslation = &AppError{
		Code:     ErrorCodeTranslation,
		Severity: SeverityError,
		Message:  "Translation failed",
	}

	ErrServiceUnavailable = &AppError{
		Code:     ErrorCodeServiceUnavailable,
		Severity: SeverityError,
		Message:  "Service unavailable",
	}

	ErrTimeout = &AppError{
		Code:     ErrorCodeTimeout,
		Severity: SeverityWarn,
		Message:  "Request timeout",
	}

	ErrInternalError = &AppError{
		Code:     ErrorCodeInternalError,
		Severity: SeverityError,
		Message:  "Internal server error",
	}
)

// NewAppError creates a new AppError with the specified code, severity, message and details
func NewAppError(code ErrorCode, severity SeverityLevel, message, details string) *AppError {
	return &AppError{
		Code:     code,
		Severity: severity,
		Message:  message,
		Details:  details,
	}
}

// NewAppErrorWithCause creates a new AppError with an underlying cause
func NewAppErrorWithCause(code ErrorCode, severity SeverityLevel, message, details string, cause error) *AppError {
	return &AppError{
		Code:     code,
		Severity: severity,
		Message:  message,
		Details:  details,
		Cause:    cause,
	}
}

// NewStageError classifies a pipeline failure under the given kind, keeping the
// cause's text as details so it reaches the caller verbatim.
func NewStageError(kind *AppError, cause error) *AppError {
	details := ""
	if cause != nil {
		details = rootMessage(cause)
	}
	return &AppError{
		Code:     kind.Code,
		Severity: kind.Severity,
		Message:  kind.Message,
		Details:  details,
		Cause:    cause,
	}
}

// rootMessage returns the most specific message in an AppError chain
func rootMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.PublicMessage()
	}
	return err.Error()
}

// WrapError wraps an error with additional context, preserving AppError structure if possible
func WrapError(err error, context string) error {
	if err == nil {
		return nil
	}

	// If it's already an AppError, wrap it with additional details
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:     appErr.Code,
			Severity: appErr.Severity,
			Message:  context,
			Details:  appErr.PublicMessage(),
			Cause:    appErr,
		}
	}

	// For regular errors, create a generic internal error wrapper
	return &AppError{
		Code:     ErrorCodeInternalError,
		Severity: SeverityError,
		Message:  context,
		Details:  err.Error(),
		Cause:    err,
	}
}

// WrapErrorf wraps an error with formatted context, preserving AppError structure if possible
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}

	// Handle %w verb for error wrapping by using fmt.Errorf
	if strings.Contains(format, "%w") {
		wrappedErr := fmt.Errorf(format, args...)

		if appErr, ok := err.(*AppError); ok {
			return &AppError{
				Code:     appErr.Code,
				Severity: appErr.Severity,
				Message:  wrappedErr.Error(),
				Details:  appErr.PublicMessage(),
				Cause:    wrappedErr,
			}
		}

		return &AppError{
			Code:     ErrorCodeInternalError,
			Severity: SeverityError,
			Message:  wrappedErr.Error(),
			Details:  err.Error(),
			Cause:    wrappedErr,
		}
	}

	return WrapError(err, fmt.Sprintf(format, args...))
}

// ErrorWithContextf creates a new error with formatted context
func ErrorWithContextf(format string, args ...interface{}) error {
	return &AppError{
		Code:     ErrorCodeInternalError,
		Severity: SeverityError,
		Message:  fmt.Sprintf(format, args...),
	}
}

// AsError attempts to find an AppError anywhere in the error chain
func AsError(err error, target **AppError) bool {
	return errors.As(err, target)
}

// GetErrorCode returns the error code from an error if it's an AppError, otherwise returns a default code
func GetErrorCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrorCodeInternalError
}

// GetErrorSeverity returns the severity level from an error if it's an AppError, otherwise returns error
func GetErrorSeverity(err error) SeverityLevel {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Severity
	}
	return SeverityError
}

// IsRetryable determines if an error should be retried by the caller based on its type and severity.
// The service itself never retries.
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case ErrorCodeTimeout, ErrorCodeServiceUnavailable, ErrorCodeTranslation:
			return appErr.Severity != SeverityFatal
		}
	}
	return false
}

// ToJSON converts an AppError to a JSON-serializable structure for logs and diagnostics
func (e *AppError) ToJSON() map[string]interface{} {
	result := map[string]interface{}{
		"code":     string(e.Code),
		"message":  e.Message,
		"severity": string(e.Severity),
	}

	if e.Details != "" {
		result["details"] = e.Details
	}

	result["retryable"] = IsRetryable(e)

	if e.Cause != nil {
		switch e.Severity {
		case SeverityError, SeverityFatal:
			result["cause"] = e.Cause.Error()
		}
	}

	return result
}
