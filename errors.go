// Package guda structured error types for better error handling
package guda

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
)

// ErrorType represents categories of errors
type ErrorType int

const (
	// Memory errors
	ErrTypeMemory ErrorType = iota
	// Invalid argument errors
	ErrTypeInvalidArg
	// Execution errors
	ErrTypeExecution
	// Device errors
	ErrTypeDevice
	// Configuration errors
	ErrTypeConfig
	// Kernel build errors
	ErrTypeBuild
)

// GUDAError represents a structured error with context
type GUDAError struct {
	Type    ErrorType
	Op      string      // Operation that failed
	Message string      // Human-readable message
	Err     error       // Underlying error if any
	Context interface{} // Additional context (build log, offending value...)
}

// Error implements the error interface
func (e *GUDAError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("GUDA %s error in %s: %s (caused by: %v)",
			e.Type.String(), e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("GUDA %s error in %s: %s",
		e.Type.String(), e.Op, e.Message)
}

// Unwrap allows error chain inspection
func (e *GUDAError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a GUDAError of the same type and message, so
// errors.Is matches the predefined sentinels whatever operation raised them.
func (e *GUDAError) Is(target error) bool {
	t, ok := target.(*GUDAError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Message == t.Message
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
	case ErrTypeDevice:
		return "Device"
	case ErrTypeConfig:
		return "Config"
	case ErrTypeBuild:
		return "Build"
	default:
		return "Unknown"
	}
}

// Common error constructors

// NewMemoryError creates a memory-related error
func NewMemoryError(op string, message string, err error) error {
	return &GUDAError{
		Type:    ErrTypeMemory,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// NewInvalidArgError creates an invalid argument error
func NewInvalidArgError(op string, message string) error {
	return &GUDAError{
		Type:    ErrTypeInvalidArg,
		Op:      op,
		Message: message,
	}
}

// NewExecutionError creates an execution error
func NewExecutionError(op string, message string, err error) error {
	return &GUDAError{
		Type:    ErrTypeExecution,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// NewDeviceError creates a device error
func NewDeviceError(op string, message string) error {
	return &GUDAError{
		Type:    ErrTypeDevice,
		Op:      op,
		Message: message,
	}
}

// NewConfigError creates a configuration error. The offending value is kept
// in Context.
func NewConfigError(op string, message string, value interface{}) error {
	return &GUDAError{
		Type:    ErrTypeConfig,
		Op:      op,
		Message: message,
		Context: value,
	}
}

// NewBuildError creates a kernel build error carrying the build log.
func NewBuildError(op string, message string, buildLog string) error {
	return &GUDAError{
		Type:    ErrTypeBuild,
		Op:      op,
		Message: message,
		Context: buildLog,
	}
}

// Common pre-defined errors

var (
	// ErrOutOfMemory indicates memory allocation failure
	ErrOutOfMemory = NewMemoryError("Allocate", "out of memory", nil)

	// ErrInvalidSize indicates invalid size parameter
	ErrInvalidSize = NewInvalidArgError("Allocate", "size must not be negative")

	// ErrDoubleFree indicates a release of an already freed block
	ErrDoubleFree = NewMemoryError("Release", "double free detected", nil)

	// ErrInvalidBuffer indicates use of a released or never allocated buffer
	ErrInvalidBuffer = NewMemoryError("Buffer", "invalid buffer handle", nil)

	// ErrInvalidDevice indicates an unknown device selection
	ErrInvalidDevice = NewDeviceError("SelectDevice", "no device matches the selection")

	// ErrContextDestroyed indicates use of a context after Destroy
	ErrContextDestroyed = NewDeviceError("Context", "context has been destroyed")

	// ErrKernelFailed indicates a work-item fault
	ErrKernelFailed = NewExecutionError("Kernel", "kernel execution failed", nil)
)

func errorType(err error) (ErrorType, bool) {
	var e *GUDAError
	if errors.As(err, &e) {
		return e.Type, true
	}
	return 0, false
}

// IsMemoryError checks if an error is a memory error
func IsMemoryError(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeMemory
}

// IsInvalidArgError checks if an error is an invalid argument error
func IsInvalidArgError(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeInvalidArg
}

// IsExecutionError checks if an error is an execution error
func IsExecutionError(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeExecution
}

// IsDeviceError checks if an error is a device error
func IsDeviceError(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeDevice
}

// IsConfigError checks if an error is a configuration error
func IsConfigError(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeConfig
}

// IsBuildError checks if an error is a kernel build error
func IsBuildError(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeBuild
}

// BackendFailure describes a failed backend call: which call, where it was
// issued from, and why it failed. Backend failures are never retried.
type BackendFailure struct {
	Call string
	File string
	Line int
	Err  error
}

func (f *BackendFailure) Error() string {
	return fmt.Sprintf("%s:%d: backend call failed: %s: %v", f.File, f.Line, f.Call, f.Err)
}

func (f *BackendFailure) Unwrap() error {
	return f.Err
}

// FatalHandler is invoked with every backend failure. It is expected not to
// return; if it does, the caller still receives the failure as an error.
type FatalHandler func(*BackendFailure)

// ExitOnFailure returns a FatalHandler that writes the failure (and the build
// log for build errors) to w and terminates the process with status 1.
// With verbose set the full error chain is printed with %+v, which includes
// stack traces recorded by github.com/pkg/errors.
func ExitOnFailure(w io.Writer, verbose bool) FatalHandler {
	return func(f *BackendFailure) {
		if verbose {
			_, _ = fmt.Fprintf(w, "%s:%d: backend call failed: %s: %+v\n", f.File, f.Line, f.Call, f.Err)
		} else {
			_, _ = fmt.Fprintln(w, f.Error())
		}
		var e *GUDAError
		if errors.As(f.Err, &e) && e.Type == ErrTypeBuild {
			if log, ok := e.Context.(string); ok && log != "" {
				_, _ = fmt.Fprintf(w, "Build log:\n%s\n", log)
			}
		}
		os.Exit(1)
	}
}

// Succeed checks the result of a backend call. A nil err is a no-op. Any
// other value is reported to the context's FatalHandler together with the
// call expression and the caller's file and line, and returned as a
// *BackendFailure.
func (ctx *Context) Succeed(err error, call string) error {
	return ctx.SucceedCaller(1, err, call)
}

// SucceedCaller is Succeed for checking helpers: skip is the number of
// frames between the reported caller and the caller of SucceedCaller.
func (ctx *Context) SucceedCaller(skip int, err error, call string) error {
	if err == nil {
		return nil
	}
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		file, line = "???", 0
	}
	failure := &BackendFailure{
		Call: call,
		File: filepath.Base(file),
		Line: line,
		Err:  err,
	}
	if ctx.onFatal != nil {
		ctx.onFatal(failure)
	}
	return failure
}
