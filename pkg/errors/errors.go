// Package errors provides structured error types for shiftsched.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the scheduler, the CLI and the HTTP API
//   - Machine-readable error codes for programmatic handling
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Codes fall into three families that mirror how a caller should react:
//   - INVALID_*: input errors (bad addresses, conflicting links, bad settings).
//     Recoverable by correcting the call.
//   - CYCLE: structural errors in the precedence graph. Fatal for that graph.
//   - INTERNAL_ERROR: consistency checks inside the optimizer failed. Always a bug.
//
// Running out of a time or rotation budget is never an error.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidAddress, "op %d out of range [0, %d)", a, n)
//	if errors.Is(err, errors.ErrCodeInvalidAddress) {
//	    // Handle input error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeInvalidFormat, origErr, "decoding %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input errors
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidAddress  Code = "INVALID_ADDRESS"
	ErrCodeConflictingLink Code = "CONFLICTING_LINK"
	ErrCodeInvalidSetting  Code = "INVALID_SETTING"
	ErrCodeInvalidFormat   Code = "INVALID_FORMAT"
	ErrCodeInvalidOrder    Code = "INVALID_ORDER"

	// Structural errors
	ErrCodeCycle Code = "CYCLE"

	// Resource errors
	ErrCodeNotFound         Code = "NOT_FOUND"
	ErrCodeFileNotFound     Code = "FILE_NOT_FOUND"
	ErrCodeCacheUnavailable Code = "CACHE_UNAVAILABLE"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether any *Error in err's chain has the given code.
func Is(err error, code Code) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
	}
	return false
}

// GetCode extracts the outermost error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// IsInputError reports whether err is recoverable by correcting the call.
func IsInputError(err error) bool {
	switch GetCode(err) {
	case ErrCodeInvalidInput, ErrCodeInvalidAddress, ErrCodeConflictingLink,
		ErrCodeInvalidSetting, ErrCodeInvalidFormat, ErrCodeInvalidOrder:
		return true
	}
	return false
}
