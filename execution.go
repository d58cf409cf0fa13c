package guda

import (
	"context"
	"fmt"
	"sync"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Kernel is a data-parallel program launched over an NDRange. Execute runs
// once per work-item. Buffers lists the buffers the kernel reads or writes.
// At enqueue time the queue retains a handle to each of them and executes
// the kernel returned by Bind, which must use bufs (in Buffers order) in
// place of its own handles and must not modify the receiver.
type Kernel interface {
	Name() string
	Buffers() []*Buffer
	Bind(bufs []*Buffer) Kernel
	Execute(wi *WorkItem)
}

// Cooperative is implemented by kernels whose work-items synchronize through
// Barrier or WaveSync. Work-items of a cooperative kernel run concurrently
// within their group; all other kernels run their work-items one after
// another, which is much cheaper on a CPU.
type Cooperative interface {
	Cooperative() bool
}

// WaveKernel is implemented by kernels that assume a specific lockstep
// width. A positive WaveWidth overrides the device's width for the launch.
type WaveKernel interface {
	WaveWidth() int
}

func isCooperative(k Kernel) bool {
	c, ok := k.(Cooperative)
	return ok && c.Cooperative()
}

// WorkItem identifies one work-item within the execution hierarchy and gives
// it access to its group's local memory and synchronization.
type WorkItem struct {
	localID Dim3
	linear  int
	group   *groupState
}

type groupState struct {
	id        Dim3
	linear    int
	localSize Dim3
	numGroups Dim3
	lockstep  int
	scratch   []int32
	barrier   *barrier
	waves     []*barrier
}

// GlobalID returns the global index along dim.
func (wi *WorkItem) GlobalID(dim int) int {
	return wi.group.id.At(dim)*wi.group.localSize.At(dim) + wi.localID.At(dim)
}

// LocalID returns the index within the group along dim.
func (wi *WorkItem) LocalID(dim int) int {
	return wi.localID.At(dim)
}

// GroupID returns the group index along dim.
func (wi *WorkItem) GroupID(dim int) int {
	return wi.group.id.At(dim)
}

// LocalSize returns the group size along dim.
func (wi *WorkItem) LocalSize(dim int) int {
	return wi.group.localSize.At(dim)
}

// NumGroups returns the number of groups along dim.
func (wi *WorkItem) NumGroups(dim int) int {
	return wi.group.numGroups.At(dim)
}

// GlobalSize returns the NDRange size along dim.
func (wi *WorkItem) GlobalSize(dim int) int {
	return wi.group.numGroups.At(dim) * wi.group.localSize.At(dim)
}

// LocalLinearID returns the flattened index within the group.
func (wi *WorkItem) LocalLinearID() int {
	return wi.linear
}

// Lockstep returns the number of work-items that form a wave.
func (wi *WorkItem) Lockstep() int {
	return wi.group.lockstep
}

// Local returns the group's local memory, shared by all its work-items.
func (wi *WorkItem) Local() []int32 {
	return wi.group.scratch
}

// Barrier waits until every work-item of the group reaches it. Local memory
// writes made before the barrier are visible to the whole group after it.
func (wi *WorkItem) Barrier() {
	if wi.group.barrier == nil {
		exceptions.Panicf("Barrier() called from a kernel that is not cooperative")
	}
	wi.group.barrier.Wait()
}

// WaveSync waits for the other work-items of the same wave. With a lockstep
// width of 1 every work-item is its own wave and WaveSync does nothing.
func (wi *WorkItem) WaveSync() {
	if wi.group.lockstep <= 1 {
		return
	}
	if wi.group.waves == nil {
		exceptions.Panicf("WaveSync() called from a kernel that is not cooperative")
	}
	wi.group.waves[wi.linear/wi.group.lockstep].Wait()
}

func (g *groupState) workItem(linear int) *WorkItem {
	return &WorkItem{
		localID: linearTo3D(linear, g.localSize),
		linear:  linear,
		group:   g,
	}
}

func (g *groupState) retire(wi *WorkItem) {
	g.barrier.Retire()
	if g.waves != nil {
		g.waves[wi.linear/g.lockstep].Retire()
	}
}

// execute runs every group of the NDRange, at most ctx.maxParallelism at a
// time. Once a group fails, groups that have not started are skipped.
func (ctx *Context) execute(k Kernel, global, local Dim3, localInts int) error {
	global, local = global.norm(), local.norm()
	numGroups := Dim3{X: global.X / local.X, Y: global.Y / local.Y, Z: global.Z / local.Z}
	total := numGroups.Size()
	coop := isCooperative(k)
	lockstep := ctx.LockstepWidth()
	if wk, ok := k.(WaveKernel); ok && wk.WaveWidth() > 0 {
		lockstep = wk.WaveWidth()
	}

	eg, egCtx := errgroup.WithContext(context.Background())
	eg.SetLimit(ctx.maxParallelism)
	for g := 0; g < total; g++ {
		eg.Go(func() error {
			if egCtx.Err() != nil {
				return nil
			}
			grp := &groupState{
				id:        linearTo3D(g, numGroups),
				linear:    g,
				localSize: local,
				numGroups: numGroups,
				lockstep:  lockstep,
			}
			return ctx.runGroup(k, grp, localInts, coop)
		})
	}
	return eg.Wait()
}

func (ctx *Context) runGroup(k Kernel, grp *groupState, localInts int, coop bool) error {
	if localInts > 0 {
		block, err := ctx.memory.allocate(LocalSpace, localInts*4)
		if err != nil {
			return err
		}
		scratch := &Buffer{block: block}
		defer scratch.Release()
		grp.scratch = scratch.Int32()
	}

	n := grp.localSize.Size()
	if !coop {
		// Execute all work-items of this group sequentially.
		// This maximizes cache reuse and needs no synchronization.
		for i := 0; i < n; i++ {
			wi := grp.workItem(i)
			if exc := exceptions.Try(func() { k.Execute(wi) }); exc != nil {
				return kernelFault(k, grp, i, exc)
			}
		}
		return nil
	}

	grp.barrier = newBarrier(n)
	if grp.lockstep > 1 {
		numWaves := (n + grp.lockstep - 1) / grp.lockstep
		grp.waves = make([]*barrier, numWaves)
		for w := range grp.waves {
			grp.waves[w] = newBarrier(min(grp.lockstep, n-w*grp.lockstep))
		}
	}

	faults := make([]any, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			wi := grp.workItem(i)
			faults[i] = exceptions.Try(func() { k.Execute(wi) })
			grp.retire(wi)
		}()
	}
	wg.Wait()

	for i, exc := range faults {
		if exc != nil {
			return kernelFault(k, grp, i, exc)
		}
	}
	return nil
}

func kernelFault(k Kernel, grp *groupState, item int, exc any) error {
	cause, ok := exc.(error)
	if !ok {
		cause = errors.Errorf("%v", exc)
	}
	return &GUDAError{
		Type:    ErrTypeExecution,
		Op:      fmt.Sprintf("%s (group %d, work-item %d)", k.Name(), grp.linear, item),
		Message: ErrKernelFailed.(*GUDAError).Message,
		Err:     cause,
	}
}
