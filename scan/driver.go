// Package scan computes the inclusive prefix sum of an int32 array, after
// adding a constant to every element, on a guda device.
//
// The scan is hierarchical. The padded input is split into one contiguous
// chunk per work-item and transposed so that chunks are read coalesced.
// Each work-item scans its chunk, each group scans its chunk totals, and a
// single group scans the group totals. The carries are then broadcast back
// to every element.
package scan

import (
	"github.com/pkg/errors"

	guda "github.com/LynnColeArt/gudascan"
)

// Engine runs scans on a guda context. An Engine is not safe for concurrent
// use, because all its commands go to the context's single queue.
type Engine struct {
	ctx      *guda.Context
	cfg      Config
	lockstep int
}

// NewEngine validates cfg against the context's device, builds the kernel
// program and returns an engine using it. A failed build is a backend
// failure and goes to the context's FatalHandler.
func NewEngine(ctx *guda.Context, cfg Config) (*Engine, error) {
	if err := cfg.Validate(ctx.Device()); err != nil {
		return nil, err
	}
	if err := ctx.Succeed(errors.WithStack(buildProgram(ctx.Device(), cfg)), "BuildProgram"); err != nil {
		return nil, err
	}
	return &Engine{
		ctx:      ctx,
		cfg:      cfg,
		lockstep: cfg.lockstep(ctx.Device()),
	}, nil
}

// Config returns the engine's configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Geometry returns the launch layout used for n elements.
func (e *Engine) Geometry(n int) Geometry {
	return NewGeometry(n, e.cfg, e.lockstep)
}

// succeed reports a failed backend call through the context's fail-fast
// handler. Failures are never retried.
func (e *Engine) succeed(err error, call string) error {
	if err == nil {
		return nil
	}
	return e.ctx.SucceedCaller(1, errors.WithStack(err), call)
}

// run tracks the intermediate buffers of one scan.
type run struct {
	e     *Engine
	owned []*guda.Buffer
}

func (r *run) alloc(n int, what string) (*guda.Buffer, error) {
	b, err := r.e.ctx.AllocateInt32(guda.DeviceSpace, n)
	if err != nil {
		return nil, r.e.succeed(errors.Wrapf(err, "allocating %s", what), "AllocateInt32")
	}
	r.owned = append(r.owned, b)
	return b, nil
}

func (r *run) releaseAll() {
	for _, b := range r.owned {
		_ = b.Release()
	}
}

// Run enqueues the scan of the first n values of input and returns a new
// buffer holding the n results, together with n. The result is ready once
// the queue is finished; input may be released as soon as Run returns.
func (e *Engine) Run(input *guda.Buffer, n int) (*guda.Buffer, int, error) {
	if n < 0 || n > input.Len() {
		return nil, 0, guda.NewInvalidArgError("scan.Run", "length out of range of the input buffer")
	}
	if n == 0 {
		out, err := e.ctx.AllocateInt32(guda.DeviceSpace, 0)
		if err != nil {
			return nil, 0, e.succeed(err, "AllocateInt32")
		}
		return out, 0, nil
	}

	geo := e.Geometry(n)
	q := e.ctx.Queue()
	r := &run{e: e}
	defer r.releaseAll()
	e.ctx.Logger().Debug("scan",
		"n", n,
		"num_threads", geo.NumThreads,
		"elems_per_thread", geo.ElemsPerThread,
		"padding", geo.Padding,
		"lockstep", geo.Lockstep)

	// map
	mapped, err := r.alloc(n, "mapped input")
	if err != nil {
		return nil, 0, err
	}
	if err := e.launchFlat(q, &MapAdd{In: input, Out: mapped, Size: n, Addend: e.cfg.Addend}, n); err != nil {
		return nil, 0, err
	}

	// pad up to a whole number of elements per thread
	padded, err := r.alloc(geo.PaddedLen, "padded input")
	if err != nil {
		return nil, 0, err
	}
	if err := e.succeed(q.Copy(padded, mapped, 0, 0, n), "Copy(padded, mapped)"); err != nil {
		return nil, 0, err
	}
	_ = mapped.Release()
	if geo.Padding > 0 {
		filler, err := r.alloc(geo.Padding, "padding")
		if err != nil {
			return nil, 0, err
		}
		if err := e.succeed(q.Write(filler, make([]int32, geo.Padding)), "Write(filler)"); err != nil {
			return nil, 0, err
		}
		if err := e.succeed(q.Copy(padded, filler, n, 0, geo.Padding), "Copy(padded, filler)"); err != nil {
			return nil, 0, err
		}
		_ = filler.Release()
	}

	// make every thread's chunk strided by NumThreads
	transposed, err := r.alloc(geo.PaddedLen, "transposed input")
	if err != nil {
		return nil, 0, err
	}
	err = TransposeBuffer(q, transposed, padded, geo.ElemsPerThread, geo.NumThreads, 1, e.cfg.TileDim)
	if err := e.succeed(err, "TransposeBuffer(transposed, padded)"); err != nil {
		return nil, 0, err
	}
	_ = padded.Release()

	// local scan
	partials, err := r.alloc(geo.PaddedLen, "partial scan")
	if err != nil {
		return nil, 0, err
	}
	totals, err := r.alloc(geo.NumThreads, "thread totals")
	if err != nil {
		return nil, 0, err
	}
	local := &HierarchicalScan{
		In:             transposed,
		Out:            partials,
		Totals:         totals,
		ElemsPerThread: geo.ElemsPerThread,
		NumThreads:     geo.NumThreads,
		Size:           n,
		GroupSize:      geo.GroupSize,
		Lockstep:       geo.Lockstep,
	}
	err = q.Launch(local, guda.Dim3{X: geo.NumThreads}, guda.Dim3{X: geo.GroupSize}, geo.GroupSize)
	if err := e.succeed(err, "Launch(scan_local)"); err != nil {
		return nil, 0, err
	}
	_ = transposed.Release()

	// restore the original element order
	restored, err := r.alloc(geo.PaddedLen, "restored scan")
	if err != nil {
		return nil, 0, err
	}
	err = TransposeBuffer(q, restored, partials, geo.NumThreads, geo.ElemsPerThread, 1, e.cfg.TileDim)
	if err := e.succeed(err, "TransposeBuffer(restored, partials)"); err != nil {
		return nil, 0, err
	}
	_ = partials.Release()

	// group carries
	lasts, err := r.alloc(geo.NumGroups, "group lasts")
	if err != nil {
		return nil, 0, err
	}
	err = e.launchFlat(q, &GroupLasts{Totals: totals, Lasts: lasts, NumGroups: geo.NumGroups, GroupSize: geo.GroupSize}, geo.NumGroups)
	if err != nil {
		return nil, 0, err
	}
	groupCarry, err := r.alloc(geo.NumGroups, "group carry")
	if err != nil {
		return nil, 0, err
	}
	lastsScanned, err := r.alloc(geo.NumGroups, "scanned group lasts")
	if err != nil {
		return nil, 0, err
	}
	carryScan := &HierarchicalScan{
		In:             lasts,
		Out:            lastsScanned,
		Totals:         groupCarry,
		ElemsPerThread: 1,
		NumThreads:     geo.NumGroups,
		Size:           geo.NumGroups,
		GroupSize:      geo.NumGroups,
		Lockstep:       geo.Lockstep,
	}
	err = q.Launch(carryScan, guda.Dim3{X: geo.NumGroups}, guda.Dim3{X: geo.NumGroups}, geo.NumGroups)
	if err := e.succeed(err, "Launch(scan_local) over group lasts"); err != nil {
		return nil, 0, err
	}
	_ = lasts.Release()
	_ = lastsScanned.Release()

	// per-thread carries
	threadCarry, err := r.alloc(geo.NumThreads, "thread carry")
	if err != nil {
		return nil, 0, err
	}
	broadcast := &CarryBroadcast{
		GroupCarry:  groupCarry,
		Totals:      totals,
		ThreadCarry: threadCarry,
		NumGroups:   geo.NumGroups,
		GroupSize:   geo.GroupSize,
	}
	if err := e.launchFlat(q, broadcast, geo.NumThreads); err != nil {
		return nil, 0, err
	}
	_ = groupCarry.Release()
	_ = totals.Release()

	// combine
	out, err := e.ctx.AllocateInt32(guda.DeviceSpace, n)
	if err != nil {
		return nil, 0, e.succeed(errors.Wrap(err, "allocating result"), "AllocateInt32")
	}
	combine := &Combine{
		Scanned:        restored,
		ThreadCarry:    threadCarry,
		Out:            out,
		ElemsPerThread: geo.ElemsPerThread,
		GroupSize:      geo.GroupSize,
		Size:           n,
	}
	if err := e.launchFlat(q, combine, n); err != nil {
		_ = out.Release()
		return nil, 0, err
	}
	return out, n, nil
}

// launchFlat launches a one-dimensional kernel over n work-items, rounded up
// to whole groups.
func (e *Engine) launchFlat(q *guda.Queue, k guda.Kernel, n int) error {
	global := guda.Dim3{X: guda.RoundUp(n, e.cfg.GroupSize)}
	local := guda.Dim3{X: e.cfg.GroupSize}
	return e.ctx.SucceedCaller(1, errors.WithStack(q.Launch(k, global, local, 0)), "Launch("+k.Name()+")")
}

// ScanInt32 uploads in, scans it and reads the result back.
func (e *Engine) ScanInt32(in []int32) ([]int32, error) {
	q := e.ctx.Queue()
	input, err := e.ctx.AllocateInt32(guda.DeviceSpace, len(in))
	if err != nil {
		return nil, e.succeed(err, "AllocateInt32")
	}
	defer input.Release()
	if err := e.succeed(q.Write(input, in), "Write(input)"); err != nil {
		return nil, err
	}

	out, n, err := e.Run(input, len(in))
	if err != nil {
		return nil, err
	}
	defer out.Release()

	result := make([]int32, n)
	if err := e.succeed(q.Read(result, out), "Read(result)"); err != nil {
		return nil, err
	}
	return result, nil
}

// Reference computes the same result as Engine.Run sequentially on the host.
func Reference(in []int32, addend int32) []int32 {
	out := append([]int32(nil), in...)
	ref := guda.Reference{}
	ref.AddScalar(addend, out)
	ref.InclusiveScan(out)
	return out
}
