package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code for stable testing
type ErrorCode string

// Error codes for different error categories
const (
	// General errors
	ErrUnknown      ErrorCode = "UNKNOWN"
	ErrInternal     ErrorCode = "INTERNAL"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"
	ErrNotFound     ErrorCode = "NOT_FOUND"

	// Configuration errors
	ErrConfigLoad  ErrorCode = "CONFIG_LOAD"
	ErrConfigParse ErrorCode = "CONFIG_PARSE"
	ErrConfigValid ErrorCode = "CONFIG_INVALID"

	// Rule set errors
	ErrRulesEmpty     ErrorCode = "RULES_EMPTY"
	ErrRuleInvalid    ErrorCode = "RULE_INVALID"
	ErrPatternInvalid ErrorCode = "PATTERN_INVALID"

	// Scan errors
	ErrRootAccess  ErrorCode = "ROOT_ACCESS"
	ErrScanAborted ErrorCode = "SCAN_ABORTED"

	// Registry errors
	ErrRegistrySealed ErrorCode = "REGISTRY_SEALED"
	ErrRegistryImport ErrorCode = "REGISTRY_IMPORT"

	// Pipeline errors
	ErrCollaborator ErrorCode = "COLLABORATOR_EXEC"
)

// PanprepError represents a structured error with code and details
type PanprepError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *PanprepError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *PanprepError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface
func (e *PanprepError) Is(target error) bool {
	var targetErr *PanprepError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new PanprepError with the given code and message
func New(code ErrorCode, message string) *PanprepError {
	return &PanprepError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new PanprepError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *PanprepError {
	return &PanprepError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with a PanprepError
func Wrap(err error, code ErrorCode, message string) *PanprepError {
	if err == nil {
		return nil
	}
	return &PanprepError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *PanprepError {
	if err == nil {
		return nil
	}
	return &PanprepError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail to the error
func (e *PanprepError) WithDetail(key string, value interface{}) *PanprepError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// GetCode extracts the error code from an error, returning ErrUnknown
// for errors that did not originate in this package
func GetCode(err error) ErrorCode {
	var perr *PanprepError
	if errors.As(err, &perr) {
		return perr.Code
	}
	return ErrUnknown
}

// IsCode reports whether err carries the given code
func IsCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}
