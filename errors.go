// Package gudasort structured error types for the sort engine taxonomy
package gudasort

import (
	"fmt"
)

// ErrorType represents categories of sort engine errors
type ErrorType int

const (
	// ErrTypeConfig covers caller-supplied shapes or traits that disagree
	// with the engine's configuration. Recoverable by the caller; raised
	// before any kernel dispatch.
	ErrTypeConfig ErrorType = iota
	// ErrTypeResource covers construction-time sizing failures: the plan
	// cannot place even one record within the local-memory budget.
	ErrTypeResource
	// ErrTypeExecution covers accelerator-reported kernel failures. Fatal;
	// never retried, data contents after the failure are undefined.
	ErrTypeExecution
	// ErrTypeInvalidArg covers malformed arguments outside the above.
	ErrTypeInvalidArg
)

// Error represents a structured error with context
type Error struct {
	Type    ErrorType
	Op      string // Operation that failed
	Message string // Human-readable message
	Err     error  // Underlying error if any
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gudasort %s error in %s: %s (caused by: %v)",
			e.Type.String(), e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("gudasort %s error in %s: %s",
		e.Type.String(), e.Op, e.Message)
}

// Unwrap allows error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// String returns the error type as a string
func (t ErrorType) String() string {
	switch t {
	case ErrTypeConfig:
		return "ConfigurationMismatch"
	case ErrTypeResource:
		return "ResourceExhaustion"
	case ErrTypeExecution:
		return "AcceleratorExecution"
	case ErrTypeInvalidArg:
		return "InvalidArgument"
	default:
		return "Unknown"
	}
}

// Common error constructors

// NewConfigError creates a configuration mismatch error
func NewConfigError(op string, message string) error {
	return &Error{Type: ErrTypeConfig, Op: op, Message: message}
}

// NewResourceError creates a resource exhaustion error
func NewResourceError(op string, message string) error {
	return &Error{Type: ErrTypeResource, Op: op, Message: message}
}

// NewExecutionError creates an accelerator execution error wrapping the
// device-reported cause
func NewExecutionError(op string, message string, err error) error {
	return &Error{Type: ErrTypeExecution, Op: op, Message: message, Err: err}
}

// NewInvalidArgError creates an invalid argument error
func NewInvalidArgError(op string, message string) error {
	return &Error{Type: ErrTypeInvalidArg, Op: op, Message: message}
}

// IsConfigurationMismatch checks if an error is a configuration mismatch
func IsConfigurationMismatch(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Type == ErrTypeConfig
	}
	return false
}

// IsResourceExhaustion checks if an error is a construction-time sizing failure
func IsResourceExhaustion(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Type == ErrTypeResource
	}
	return false
}

// IsAcceleratorExecutionError checks if an error is a fatal kernel failure
func IsAcceleratorExecutionError(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Type == ErrTypeExecution
	}
	return false
}

// IsInvalidArgError checks if an error is an invalid argument error
func IsInvalidArgError(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Type == ErrTypeInvalidArg
	}
	return false
}
