// Package errors defines common error types for the compiler.
package errors

import (
	"errors"
	"fmt"
)

// Error codes for the compiler.
const (
	CodeUnknown          = "UNKNOWN_ERROR"
	CodeParseError       = "PARSE_ERROR"
	CodeStructuralError  = "STRUCTURAL_ERROR"
	CodeContextError     = "CONTEXT_ERROR"
	CodeSchedulingCycle  = "SCHEDULING_CYCLE"
	CodeFIFOError        = "FIFO_ERROR"
	CodeMissingPartition = "MISSING_PARTITION"
	CodeConfigError      = "CONFIG_ERROR"
	CodeDatabaseError    = "DATABASE_ERROR"
	CodeStorageError     = "STORAGE_ERROR"
	CodeEmitError        = "EMIT_ERROR"
)

// Exit statuses surfaced by the compile flow, keyed by error code.
// Success is 0; anything not listed here maps to ExitUnknown.
const (
	ExitSuccess          = 0
	ExitUnknown          = 1
	ExitParseError       = 2
	ExitStructuralError  = 3
	ExitContextError     = 4
	ExitSchedulingCycle  = 5
	ExitFIFOError        = 6
	ExitMissingPartition = 7
	ExitConfigError      = 8
)

var exitStatuses = map[string]int{
	CodeParseError:       ExitParseError,
	CodeStructuralError:  ExitStructuralError,
	CodeContextError:     ExitContextError,
	CodeSchedulingCycle:  ExitSchedulingCycle,
	CodeFIFOError:        ExitFIFOError,
	CodeMissingPartition: ExitMissingPartition,
	CodeConfigError:      ExitConfigError,
}

// AppError represents a compiler error with a code, a message, and an
// optional offending node described by its fully qualified hierarchical name.
type AppError struct {
	Code    string
	Message string
	Node    string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	msg := e.Message
	if e.Node != "" {
		msg = fmt.Sprintf("%s (node: %s)", e.Message, e.Node)
	}
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, msg, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, msg)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is checks if the error matches the target.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError.
func New(code string, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new AppError with a formatted message.
func Newf(code string, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewNode creates a new AppError attached to the named node.
func NewNode(code string, message string, node string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Node:    node,
	}
}

// Wrap wraps an existing error with an AppError.
func Wrap(code string, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common error instances.
var (
	ErrParseError       = New(CodeParseError, "parse error")
	ErrStructuralError  = New(CodeStructuralError, "structural violation")
	ErrContextError     = New(CodeContextError, "context invariant violation")
	ErrSchedulingCycle  = New(CodeSchedulingCycle, "scheduling cycle")
	ErrFIFOError        = New(CodeFIFOError, "fifo invariant violation")
	ErrMissingPartition = New(CodeMissingPartition, "missing partition assignment")
	ErrConfigError      = New(CodeConfigError, "configuration error")
	ErrDatabaseError    = New(CodeDatabaseError, "database error")
	ErrStorageError     = New(CodeStorageError, "storage error")
	ErrEmitError        = New(CodeEmitError, "emit error")
)

// IsSchedulingCycle checks if the error is a scheduling cycle error.
func IsSchedulingCycle(err error) bool {
	return errors.Is(err, ErrSchedulingCycle)
}

// IsContextError checks if the error is a context invariant violation.
func IsContextError(err error) bool {
	return errors.Is(err, ErrContextError)
}

// IsStructuralError checks if the error is a structural violation.
func IsStructuralError(err error) bool {
	return errors.Is(err, ErrStructuralError)
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// GetErrorMessage extracts the error message from an error.
func GetErrorMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

// ExitStatus maps an error to the process exit status the compile flow
// must surface.  A nil error maps to ExitSuccess.
func ExitStatus(err error) int {
	if err == nil {
		return ExitSuccess
	}
	if status, ok := exitStatuses[GetErrorCode(err)]; ok {
		return status
	}
	return ExitUnknown
}
