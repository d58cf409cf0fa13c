// Package guda provides a GPU-style execution model for CPU execution.
// It runs data-parallel kernels over work-groups of cooperating work-items
// on CPU-only infrastructure.
//
// Example usage:
//
//	ctx := guda.NewContext(guda.DefaultDevice())
//	defer ctx.Destroy()
//
//	// Allocate device memory
//	d_a, _ := ctx.AllocateInt32(guda.DeviceSpace, n)
//	defer d_a.Release()
//
//	// Copy data to device
//	ctx.Queue().Write(d_a, h_a)
//
//	// Launch kernel
//	global := guda.Dim3{X: (n + 255) / 256 * 256}
//	local := guda.Dim3{X: 256}
//	ctx.Queue().Launch(myKernel, global, local, 0)
package guda

import (
	"os"
	"runtime"
	"sync"
	"sync/atomic"
)

// Logger is the subset of a structured logger the runtime writes to.
// internal/logger.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Context represents an execution context for GUDA operations.
// It manages the device, its memory and the single ordered command queue.
// A Context is created once, before any GUDA operations, and should be
// destroyed when no longer needed. It is never reconstructed mid-run.
type Context struct {
	device         *Device
	memory         *MemoryPool
	queue          *Queue
	stats          *KernelStats
	log            Logger
	onFatal        FatalHandler
	synchronous    bool
	maxParallelism int
	destroyed      atomic.Bool
	destroyOnce    sync.Once
}

// Option configures a Context.
type Option func(*Context)

// WithLogger sets the logger used for launch and allocation diagnostics.
func WithLogger(log Logger) Option {
	return func(ctx *Context) {
		if log != nil {
			ctx.log = log
		}
	}
}

// WithSynchronous makes every enqueued command wait for completion and log
// its runtime, like a debug build of an OpenCL host program.
func WithSynchronous(synchronous bool) Option {
	return func(ctx *Context) {
		ctx.synchronous = synchronous
	}
}

// WithFatalHandler replaces the handler that receives backend failures.
// A nil handler makes Succeed only return the failure.
func WithFatalHandler(h FatalHandler) Option {
	return func(ctx *Context) {
		ctx.onFatal = h
	}
}

// WithMaxParallelism bounds the number of work-groups executing at once.
// Values <= 0 select runtime.NumCPU().
func WithMaxParallelism(n int) Option {
	return func(ctx *Context) {
		ctx.maxParallelism = n
	}
}

// NewContext creates a context on the given device. A nil device selects
// DefaultDevice().
func NewContext(device *Device, opts ...Option) *Context {
	if device == nil {
		device = DefaultDevice()
	}
	ctx := &Context{
		device: device,
		stats:  NewKernelStats(),
		log:    nopLogger{},
	}
	ctx.onFatal = ExitOnFailure(os.Stderr, false)
	for _, opt := range opts {
		opt(ctx)
	}
	if ctx.maxParallelism <= 0 {
		ctx.maxParallelism = runtime.NumCPU()
	}
	ctx.memory = NewMemoryPool(int64(device.TotalMem), ctx.log)
	ctx.queue = newQueue(ctx)
	ctx.log.Debug("context created",
		"device", device.Name,
		"vendor", device.Vendor,
		"lockstep_width", LockstepFor(device),
		"max_parallelism", ctx.maxParallelism)
	return ctx
}

// Destroy drains the queue and releases the context. Any later use of the
// context or its queue fails with ErrContextDestroyed.
func (ctx *Context) Destroy() error {
	var err error
	ctx.destroyOnce.Do(func() {
		err = ctx.queue.close()
		ctx.destroyed.Store(true)
		allocated, peak := ctx.memory.Stats()
		ctx.log.Debug("context destroyed",
			"live_blocks", ctx.memory.Live(),
			"allocated", allocated,
			"peak", peak)
	})
	return err
}

// Device returns the device of the context.
func (ctx *Context) Device() *Device {
	return ctx.device
}

// Queue returns the context's command queue.
func (ctx *Context) Queue() *Queue {
	return ctx.queue
}

// Memory returns the context's memory pool.
func (ctx *Context) Memory() *MemoryPool {
	return ctx.memory
}

// Stats returns the per-kernel runtime statistics.
func (ctx *Context) Stats() *KernelStats {
	return ctx.stats
}

// Logger returns the context's logger.
func (ctx *Context) Logger() Logger {
	return ctx.log
}

// Synchronous reports whether commands complete before Enqueue returns.
func (ctx *Context) Synchronous() bool {
	return ctx.synchronous
}

// LockstepWidth is the lockstep width of the context's device.
func (ctx *Context) LockstepWidth() int {
	return LockstepFor(ctx.device)
}

func (ctx *Context) alive(op string) error {
	if ctx.destroyed.Load() {
		return NewDeviceError(op, "context has been destroyed")
	}
	return nil
}

// Dim3 represents 3D dimensions for NDRange and work-group configurations.
// Zero Y or Z components are treated as 1.
type Dim3 struct {
	X, Y, Z int
}

// Size returns the total number of elements
func (d Dim3) Size() int {
	d = d.norm()
	return d.X * d.Y * d.Z
}

// At returns the component for dimension 0, 1 or 2.
func (d Dim3) At(dim int) int {
	switch dim {
	case 0:
		return d.X
	case 1:
		return d.Y
	default:
		return d.Z
	}
}

func (d Dim3) norm() Dim3 {
	if d.Y == 0 {
		d.Y = 1
	}
	if d.Z == 0 {
		d.Z = 1
	}
	return d
}

// linearTo3D converts a linear index to 3D coordinates
func linearTo3D(linear int, dim Dim3) Dim3 {
	z := linear / (dim.X * dim.Y)
	y := (linear % (dim.X * dim.Y)) / dim.X
	x := linear % dim.X
	return Dim3{X: x, Y: y, Z: z}
}

// RoundUp rounds n up to the next multiple of m.
func RoundUp(n, m int) int {
	if m <= 0 {
		return n
	}
	return (n + m - 1) / m * m
}
