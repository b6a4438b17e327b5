// Package errors carries the HTTP facing error handling for the TRITMAP
// server: errors with an attached status and stack, a mapping from the
// optimizer sentinels to status codes, and recovery middleware.
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"

	"github.com/copyleftdev/TRITMAP/internal/optimization"
)

// Sentinel errors raised by the job registry.
var (
	// ErrNotFound is returned for unknown job IDs.
	ErrNotFound = stderrors.New("optimization job not found")
	// ErrTooManyJobs is returned when the running job limit is reached.
	ErrTooManyJobs = stderrors.New("too many running optimization jobs")
	// ErrBadRequest is returned for undecodable request bodies.
	ErrBadRequest = stderrors.New("malformed request")
)

// Error represents an error with context, an HTTP status and a stack trace.
type Error struct {
	// The underlying error that was returned
	Err error
	// A human-readable message describing the error
	Message string
	// The operation that was being performed when the error occurred
	Operation string
	// Status is the HTTP status reported for the error. Zero means derive
	// it from Err.
	Status int
	// The stack trace
	Stack []string
}

// Error implements the error interface.
func (e *Error) Error() string {
	var builder strings.Builder

	if e.Operation != "" {
		builder.WriteString(e.Operation)
	}

	if e.Message != "" {
		if builder.Len() > 0 {
			builder.WriteString(": ")
		}
		builder.WriteString(e.Message)
	}

	if e.Err != nil {
		if builder.Len() > 0 {
			builder.WriteString(": ")
		}
		builder.WriteString(e.Err.Error())
	}

	return builder.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithOperation sets the operation that failed.
func (e *Error) WithOperation(op string) *Error {
	e.Operation = op
	return e
}

// WithStatus pins the HTTP status reported for the error.
func (e *Error) WithStatus(status int) *Error {
	e.Status = status
	return e
}

// StackTrace returns the stack trace as a slice of strings.
func (e *Error) StackTrace() []string {
	return e.Stack
}

// New creates a new error with a message.
func New(msg string) *Error {
	return &Error{
		Message: msg,
		Stack:   getStackTrace(),
	}
}

// Errorf creates a new error with a formatted message.
func Errorf(format string, args ...interface{}) *Error {
	return &Error{
		Message: fmt.Sprintf(format, args...),
		Stack:   getStackTrace(),
	}
}

// Wrap wraps an error with additional context. It returns nil for a nil err.
func Wrap(err error, msg string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Err:     err,
		Message: msg,
		Stack:   getStackTrace(),
	}
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Err:     err,
		Message: fmt.Sprintf(format, args...),
		Stack:   getStackTrace(),
	}
}

// StatusCode returns the HTTP status for err. An explicit status on any
// *Error in the chain wins; otherwise known sentinels are mapped and
// everything else is a 500.
func StatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var e *Error
	if stderrors.As(err, &e) && e.Status != 0 {
		return e.Status
	}

	switch {
	case Is(err, ErrNotFound):
		return http.StatusNotFound
	case Is(err, ErrTooManyJobs):
		return http.StatusTooManyRequests
	case Is(err, ErrBadRequest),
		Is(err, optimization.ErrInvalidConfig),
		Is(err, optimization.ErrInvalidArrangement),
		Is(err, optimization.ErrInvalidFrequencies):
		return http.StatusBadRequest
	case Is(err, optimization.ErrDegenerateFrequencies):
		return http.StatusUnprocessableEntity
	case Is(err, context.Canceled), Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// getStackTrace returns the current stack trace as a slice of strings.
func getStackTrace() []string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:]) // Skip runtime.Callers, getStackTrace, and the constructor
	if n == 0 {
		return nil
	}

	frames := runtime.CallersFrames(pcs[:n])
	stack := make([]string, 0, n)

	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") && !strings.Contains(frame.File, "internal/errors/errors.go") {
			stack = append(stack, fmt.Sprintf("%s\n\t%s:%d", frame.Function, frame.File, frame.Line))
		}
		if !more {
			break
		}
	}

	return stack
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

// Unwrap returns the result of calling the Unwrap method on err, if any.
func Unwrap(err error) error {
	return stderrors.Unwrap(err)
}
