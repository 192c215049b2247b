// Package device structured error types
package device

import (
	"fmt"
)

// ErrorType represents categories of device errors
type ErrorType int

const (
	// Memory errors
	ErrTypeMemory ErrorType = iota
	// Invalid argument errors
	ErrTypeInvalidArg
	// Execution errors
	ErrTypeExecution
)

// Error represents a structured device error with context
type Error struct {
	Type    ErrorType
	Op      string // Operation that failed
	Message string // Human-readable message
	Err     error  // Underlying error if any
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("device %s error in %s: %s (caused by: %v)",
			e.Type.String(), e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("device %s error in %s: %s",
		e.Type.String(), e.Op, e.Message)
}

// Unwrap allows error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// String returns the error type as a string
func (t ErrorType) String() string {
	switch t {
	case ErrTypeMemory:
		return "Memory"
	case ErrTypeInvalidArg:
		return "InvalidArgument"
	case ErrTypeExecution:
		return "Execution"
	default:
		return "Unknown"
	}
}

// NewMemoryError creates a memory-related error
func NewMemoryError(op string, message string, err error) error {
	return &Error{Type: ErrTypeMemory, Op: op, Message: message, Err: err}
}

// NewInvalidArgError creates an invalid argument error
func NewInvalidArgError(op string, message string) error {
	return &Error{Type: ErrTypeInvalidArg, Op: op, Message: message}
}

// NewExecutionError creates an execution error
func NewExecutionError(op string, message string, err error) error {
	return &Error{Type: ErrTypeExecution, Op: op, Message: message, Err: err}
}

// Common pre-defined errors

var (
	// ErrInvalidSize indicates an invalid allocation size
	ErrInvalidSize = NewInvalidArgError("Allocate", "size must be non-negative")

	// ErrDoubleFree indicates a double free attempt
	ErrDoubleFree = NewMemoryError("Free", "double free detected", nil)
)

// IsMemoryError checks if an error is a device memory error
func IsMemoryError(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Type == ErrTypeMemory
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

// IsExecutionError checks if an error is an execution error
func IsExecutionError(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Type == ErrTypeExecution
	}
	return false
}
