// Package errors provides coded domain errors for the sorter.
//
// Usage:
//
//	// In the mover - return typed errors
//	if err := os.Mkdir(dir, 0o755); err != nil {
//	    return errors.Wrapf(err, errors.CodeDirectoryCreation, "create %s", dir)
//	}
//
//	// In the dispatcher - check with errors.Is
//	if errors.Is(err, errors.ErrSourceMissing) {
//	    log.Info("source already moved", "path", path)
//	    continue
//	}
//
//	// At the process boundary - map to an exit status
//	var domainErr *errors.Error
//	if errors.As(err, &domainErr) {
//	    os.Exit(domainErr.ExitCode())
//	}
package errors

import (
	"errors"
	"fmt"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
	New    = errors.New
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the application.
const (
	CodeUsage             Code = "USAGE"
	CodeStartup           Code = "STARTUP"
	CodeRegistration      Code = "REGISTRATION"
	CodeClassification    Code = "CLASSIFICATION"
	CodeDirectoryCreation Code = "DIRECTORY_CREATION"
	CodeMove              Code = "MOVE"
	CodeSourceMissing     Code = "SOURCE_MISSING"
	CodeValidation        Code = "VALIDATION"
	CodeLocked            Code = "LOCKED"
	CodeInternal          Code = "INTERNAL"
)

// ExitCode returns the process exit status for an error code.
func (c Code) ExitCode() int {
	switch c {
	case CodeUsage, CodeValidation:
		return 2
	default:
		return 1
	}
}

// Recoverable reports whether an error with this code is an expected race
// with other programs touching the same file. The dispatcher counts such
// entries as skipped; every other per-file error counts as a failure.
func (c Code) Recoverable() bool {
	switch c {
	case CodeClassification, CodeSourceMissing:
		return true
	default:
		return false
	}
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error  // unexported, for wrapping
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// ExitCode returns the process exit status for this error.
func (e *Error) ExitCode() int {
	return e.Code.ExitCode()
}

// Sentinel errors for use with errors.Is().
var (
	ErrUsage             = &Error{Code: CodeUsage, Message: "usage error"}
	ErrRegistration      = &Error{Code: CodeRegistration, Message: "registration error"}
	ErrClassification    = &Error{Code: CodeClassification, Message: "classification error"}
	ErrDirectoryCreation = &Error{Code: CodeDirectoryCreation, Message: "directory creation error"}
	ErrMove              = &Error{Code: CodeMove, Message: "move error"}
	ErrSourceMissing     = &Error{Code: CodeSourceMissing, Message: "source missing"}
	ErrValidation        = &Error{Code: CodeValidation, Message: "validation error"}
	ErrLocked            = &Error{Code: CodeLocked, Message: "locked"}
)

// Constructor functions for creating errors with custom messages.

// Usage creates a usage error.
func Usage(msg string) *Error {
	return &Error{Code: CodeUsage, Message: msg}
}

// Usagef creates a usage error with formatted message.
func Usagef(format string, args ...any) *Error {
	return &Error{Code: CodeUsage, Message: fmt.Sprintf(format, args...)}
}

// Startupf creates a startup error with formatted message.
func Startupf(format string, args ...any) *Error {
	return &Error{Code: CodeStartup, Message: fmt.Sprintf(format, args...)}
}

// Registrationf creates a registration error with formatted message.
func Registrationf(format string, args ...any) *Error {
	return &Error{Code: CodeRegistration, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// ValidationWithDetails creates a validation error with details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// Lockedf creates a locked error with formatted message.
func Lockedf(format string, args ...any) *Error {
	return &Error{Code: CodeLocked, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}

// CodeOf returns the code of the first *Error in err's chain, or
// CodeInternal when there is none.
func CodeOf(err error) Code {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return CodeInternal
}
