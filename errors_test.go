package guda

import (
	"errors"
	"strings"
	"testing"

	"github.com/gomlx/exceptions"
	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructuredErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantType ErrorType
		wantOp   string
		wantMsg  string
		checkFn  func(error) bool
	}{
		{
			name:     "Memory Error",
			err:      ErrOutOfMemory,
			wantType: ErrTypeMemory,
			wantOp:   "Allocate",
			wantMsg:  "out of memory",
			checkFn:  IsMemoryError,
		},
		{
			name:     "Invalid Arg Error",
			err:      ErrInvalidSize,
			wantType: ErrTypeInvalidArg,
			wantOp:   "Allocate",
			wantMsg:  "size must not be negative",
			checkFn:  IsInvalidArgError,
		},
		{
			name:     "Double Free Error",
			err:      ErrDoubleFree,
			wantType: ErrTypeMemory,
			wantOp:   "Release",
			wantMsg:  "double free detected",
			checkFn:  IsMemoryError,
		},
		{
			name:     "Invalid Device Error",
			err:      ErrInvalidDevice,
			wantType: ErrTypeDevice,
			wantOp:   "SelectDevice",
			wantMsg:  "no device matches the selection",
			checkFn:  IsDeviceError,
		},
		{
			name:     "Destroyed Context Error",
			err:      ErrContextDestroyed,
			wantType: ErrTypeDevice,
			wantOp:   "Context",
			wantMsg:  "context has been destroyed",
			checkFn:  IsDeviceError,
		},
		{
			name:     "Execution Error",
			err:      ErrKernelFailed,
			wantType: ErrTypeExecution,
			wantOp:   "Kernel",
			wantMsg:  "kernel execution failed",
			checkFn:  IsExecutionError,
		},
		{
			name:     "Config Error",
			err:      NewConfigError("scan.Config", "group size must be positive", 0),
			wantType: ErrTypeConfig,
			wantOp:   "scan.Config",
			wantMsg:  "group size must be positive",
			checkFn:  IsConfigError,
		},
		{
			name:     "Build Error",
			err:      NewBuildError("Register", "kernel has no name", "line 1: missing name"),
			wantType: ErrTypeBuild,
			wantOp:   "Register",
			wantMsg:  "kernel has no name",
			checkFn:  IsBuildError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Check if it's a GUDAError
			gudaErr, ok := tt.err.(*GUDAError)
			if !ok {
				t.Fatalf("Expected GUDAError, got %T", tt.err)
			}

			if gudaErr.Type != tt.wantType {
				t.Errorf("Type = %v, want %v", gudaErr.Type, tt.wantType)
			}
			if gudaErr.Op != tt.wantOp {
				t.Errorf("Op = %v, want %v", gudaErr.Op, tt.wantOp)
			}
			if gudaErr.Message != tt.wantMsg {
				t.Errorf("Message = %v, want %v", gudaErr.Message, tt.wantMsg)
			}

			// Check type-specific function, also through a wrapped chain
			if !tt.checkFn(tt.err) {
				t.Errorf("Type check function returned false")
			}
			if !tt.checkFn(pkgerrors.Wrap(tt.err, "context")) {
				t.Errorf("Type check function returned false on a wrapped error")
			}

			if !strings.Contains(tt.err.Error(), tt.wantMsg) {
				t.Errorf("Error() = %q, want it to contain %q", tt.err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	baseErr := errors.New("base error")
	wrappedErr := NewMemoryError("Test", "wrapped error", baseErr)

	gudaErr, ok := wrappedErr.(*GUDAError)
	if !ok {
		t.Fatal("Expected GUDAError")
	}
	if gudaErr.Unwrap() != baseErr {
		t.Errorf("Unwrap() = %v, want %v", gudaErr.Unwrap(), baseErr)
	}
	if !errors.Is(wrappedErr, baseErr) {
		t.Error("errors.Is() should return true for wrapped error")
	}
}

func TestErrorIsMatchesSentinelFromOtherOps(t *testing.T) {
	err := &GUDAError{Type: ErrTypeMemory, Op: "Launch", Message: "out of memory"}
	assert.True(t, errors.Is(err, ErrOutOfMemory))
	assert.False(t, errors.Is(err, ErrDoubleFree))
	assert.True(t, errors.Is(pkgerrors.Wrapf(err, "allocating %s", "padding"), ErrOutOfMemory))
}

func TestErrorTypeString(t *testing.T) {
	tests := []struct {
		errType ErrorType
		want    string
	}{
		{ErrTypeMemory, "Memory"},
		{ErrTypeInvalidArg, "InvalidArgument"},
		{ErrTypeExecution, "Execution"},
		{ErrTypeDevice, "Device"},
		{ErrTypeConfig, "Config"},
		{ErrTypeBuild, "Build"},
		{ErrorType(999), "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.errType.String(); got != tt.want {
				t.Errorf("String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSucceed(t *testing.T) {
	var failures []*BackendFailure
	ctx := NewContext(nil, WithFatalHandler(func(f *BackendFailure) {
		failures = append(failures, f)
	}))
	defer ctx.Destroy()

	require.NoError(t, ctx.Succeed(nil, "Finish"))
	require.Empty(t, failures)

	err := ctx.Succeed(ErrOutOfMemory, "AllocateInt32(input)")
	require.Error(t, err)
	require.Len(t, failures, 1)

	var failure *BackendFailure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, "AllocateInt32(input)", failure.Call)
	assert.Equal(t, "errors_test.go", failure.File)
	assert.Positive(t, failure.Line)
	assert.True(t, errors.Is(err, ErrOutOfMemory))
	assert.Contains(t, err.Error(), "backend call failed: AllocateInt32(input)")
}

func TestSucceedPanickingHandler(t *testing.T) {
	ctx := NewContext(nil, WithFatalHandler(func(f *BackendFailure) {
		panic(f)
	}))
	defer ctx.Destroy()

	exc := exceptions.Try(func() {
		_ = ctx.Succeed(ErrKernelFailed, "Launch(scan_local)")
	})
	require.NotNil(t, exc)
	failure, ok := exc.(*BackendFailure)
	require.True(t, ok, "got %T", exc)
	assert.Equal(t, "Launch(scan_local)", failure.Call)
}

func helperSucceed(ctx *Context, err error) error {
	return ctx.SucceedCaller(1, err, "helper")
}

func TestSucceedCallerSkipsHelpers(t *testing.T) {
	ctx := NewContext(nil, WithFatalHandler(nil))
	defer ctx.Destroy()

	err := helperSucceed(ctx, ErrInvalidSize)
	var failure *BackendFailure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, "errors_test.go", failure.File)
}

func TestBackendFailureFormat(t *testing.T) {
	f := &BackendFailure{Call: "Launch", File: "driver.go", Line: 42, Err: ErrKernelFailed}
	assert.Equal(t, "driver.go:42: backend call failed: Launch: "+ErrKernelFailed.Error(), f.Error())
	assert.True(t, errors.Is(f, ErrKernelFailed))
}
