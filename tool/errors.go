package tool

import (
	"errors"
	"fmt"
	"time"
)

// ErrToolNotFound signals resolution of a name with no registered descriptor.
var ErrToolNotFound = errors.New("tool not found")

// MissingParameterError names a required parameter absent from the arguments.
type MissingParameterError struct {
	Tool      string
	Parameter string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("tool %s: missing required parameter %q", e.Tool, e.Parameter)
}

// TypeMismatchError names a parameter whose value is not compatible with the
// declared semantic type.
type TypeMismatchError struct {
	Tool      string
	Parameter string
	Expected  string
	Got       any
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("tool %s: parameter %q expects %s, got %T", e.Tool, e.Parameter, e.Expected, e.Got)
}

// UnknownParameterError names an argument that no ParameterSpec declares.
type UnknownParameterError struct {
	Tool      string
	Parameter string
}

func (e *UnknownParameterError) Error() string {
	return fmt.Sprintf("tool %s: unknown parameter %q", e.Tool, e.Parameter)
}

// ExecutionError is the normalized form of any handler failure (returned
// error or recovered panic). It never crosses the dispatch boundary raw.
type ExecutionError struct {
	Tool  string
	Cause error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("tool %s: execution failed: %v", e.Tool, e.Cause)
}

// Unwrap exposes the cause for errors.Is/As matching.
func (e *ExecutionError) Unwrap() error { return e.Cause }

// TimeoutError reports a handler that exceeded its time bound and was
// abandoned.
type TimeoutError struct {
	Tool    string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("tool %s: timed out after %s", e.Tool, e.Timeout)
}

// IsValidation reports whether err is one of the argument validation error
// kinds. The HTTP boundary uses this to pick a 4xx status.
func IsValidation(err error) bool {
	var missing *MissingParameterError
	var mismatch *TypeMismatchError
	var unknown *UnknownParameterError
	return errors.As(err, &missing) || errors.As(err, &mismatch) || errors.As(err, &unknown)
}
