// Package errors provides structured error handling for reconai operations.
// It defines error codes and the error types used at the API and
// configuration boundaries. Tool execution failures are not errors: they are
// carried as data inside runner outcomes.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents different types of errors that can occur.
type ErrorCode string

const (
	// General errors.
	CodeUnknown       ErrorCode = "UNKNOWN"
	CodeValidation    ErrorCode = "VALIDATION"
	CodeConfiguration ErrorCode = "CONFIGURATION"
	CodeInternal      ErrorCode = "INTERNAL"

	// Lookup errors.
	CodeNotFound ErrorCode = "NOT_FOUND"
	CodeConflict ErrorCode = "CONFLICT"

	// Scan and tool errors.
	CodeTargetInvalid ErrorCode = "TARGET_INVALID"
	CodeToolUnknown   ErrorCode = "TOOL_UNKNOWN"

	// Report errors.
	CodeReportFormat ErrorCode = "REPORT_FORMAT"
	CodeReportWrite  ErrorCode = "REPORT_WRITE"
)

// ScanError represents an error raised around scan jobs and tool invocations.
type ScanError struct {
	Code    ErrorCode
	Message string
	Target  string
	Cause   error
}

// Error implements the error interface.
func (e *ScanError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Detail())
}

// Detail is the error text without the code prefix.
func (e *ScanError) Detail() string {
	msg := e.Message
	if e.Target != "" {
		msg = fmt.Sprintf("%s (target: %s)", msg, e.Target)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ScanError) Unwrap() error {
	return e.Cause
}

// NewScanError creates a new scan error with the specified code and message.
func NewScanError(code ErrorCode, message string) *ScanError {
	return &ScanError{Code: code, Message: message}
}

// NewScanErrorWithTarget creates a scan error for a specific target.
func NewScanErrorWithTarget(code ErrorCode, message, target string) *ScanError {
	return &ScanError{Code: code, Message: message, Target: target}
}

// WrapScanError wraps an existing error as a scan error.
func WrapScanError(code ErrorCode, message string, err error) *ScanError {
	return &ScanError{Code: code, Message: message, Cause: err}
}

// ConfigError represents configuration-related errors.
type ConfigError struct {
	Code    ErrorCode
	Message string
	Field   string
	Value   any
	Cause   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// NewConfigFieldError creates a configuration error for a specific field.
func NewConfigFieldError(code ErrorCode, message, field string, value any) *ConfigError {
	return &ConfigError{Code: code, Message: message, Field: field, Value: value}
}

// WrapConfigError wraps an existing error as a configuration error.
func WrapConfigError(code ErrorCode, message string, err error) *ConfigError {
	return &ConfigError{Code: code, Message: message, Cause: err}
}

// GetCode extracts the error code from the first coded error in the chain.
func GetCode(err error) ErrorCode {
	var scanErr *ScanError
	if stderrors.As(err, &scanErr) {
		return scanErr.Code
	}
	var cfgErr *ConfigError
	if stderrors.As(err, &cfgErr) {
		return cfgErr.Code
	}
	return CodeUnknown
}

// IsCode checks if an error has a specific error code.
func IsCode(err error, code ErrorCode) bool {
	return err != nil && GetCode(err) == code
}

// IsNotFound reports whether err signals a missing resource.
func IsNotFound(err error) bool {
	return IsCode(err, CodeNotFound)
}

// IsConflict reports whether err signals a duplicate resource.
func IsConflict(err error) bool {
	return IsCode(err, CodeConflict)
}

// IsValidation reports whether err was caused by bad input.
func IsValidation(err error) bool {
	switch GetCode(err) {
	case CodeValidation, CodeTargetInvalid, CodeToolUnknown, CodeReportFormat:
		return true
	default:
		return false
	}
}

// Common error creation functions

// ErrScanNotFound creates an error for an unknown scan id.
func ErrScanNotFound(scanID string) *ScanError {
	return &ScanError{Code: CodeNotFound, Message: "scan not found", Target: scanID}
}

// ErrInvalidTarget creates an error for invalid scan targets.
func ErrInvalidTarget(target string) *ScanError {
	return NewScanErrorWithTarget(CodeTargetInvalid, "invalid target specification", target)
}

// ErrConfigInvalid creates an error for invalid configuration.
func ErrConfigInvalid(field string, value any) *ConfigError {
	return NewConfigFieldError(CodeValidation, "invalid configuration value", field, value)
}

// ErrConfigMissing creates an error for missing required configuration.
func ErrConfigMissing(field string) *ConfigError {
	return NewConfigFieldError(CodeConfiguration, "required configuration field missing", field, nil)
}

// Message returns text suitable for API clients: the detail of the first
// ScanError in the chain, or err's own text.
func Message(err error) string {
	var se *ScanError
	if stderrors.As(err, &se) {
		return se.Detail()
	}
	return err.Error()
}
