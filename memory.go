package guda

import (
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/dustin/go-humanize"
)

// MemorySpace specifies where a buffer lives. All spaces follow the same
// ownership contract; they differ only in accounting and lifetime.
type MemorySpace int

const (
	HostSpace   MemorySpace = iota // Host-resident memory
	DeviceSpace                    // Device global memory
	LocalSpace                     // Group-local scratch, one per work-group launch
)

func (s MemorySpace) String() string {
	switch s {
	case HostSpace:
		return "host"
	case DeviceSpace:
		return "device"
	case LocalSpace:
		return "local"
	default:
		return "unknown"
	}
}

// memBlock is the storage shared by every Buffer handle aliasing it.
type memBlock struct {
	data  []byte
	size  int
	refs  atomic.Int32
	space MemorySpace
	pool  *MemoryPool
}

// Buffer is a reference-counted handle to a block of memory. Handles
// created by Allocate start with a reference count of one; Share and Retain
// add references. Every handle is released exactly once and the block is
// returned to its pool when the last reference goes away.
//
// There is no copy-on-write: handles sharing a block observe each other's
// writes. Copying the Buffer struct does not add a reference.
type Buffer struct {
	block *memBlock
}

// MemoryPool manages device memory allocation with efficient reuse.
// It maintains a free list of previously allocated blocks to reduce
// allocation overhead. Reused blocks are not cleared, like uninitialized
// device memory.
type MemoryPool struct {
	mu         sync.Mutex
	capacity   int64
	freeList   []*memBlock
	totalAlloc int64
	peakAlloc  int64
	live       int
	log        Logger
}

// NewMemoryPool creates a pool that refuses device and local allocations
// beyond capacity bytes. A capacity <= 0 means unlimited.
func NewMemoryPool(capacity int64, log Logger) *MemoryPool {
	if log == nil {
		log = nopLogger{}
	}
	return &MemoryPool{
		capacity: capacity,
		log:      log,
	}
}

// Allocate allocates a fresh buffer of the given size in bytes.
// A zero size still allocates a minimal block so the handle is valid.
//
// Example:
//
//	buf, err := ctx.Allocate(guda.DeviceSpace, 1024*4)
//	if err != nil {
//		return err
//	}
//	defer buf.Release()
func (ctx *Context) Allocate(space MemorySpace, size int) (*Buffer, error) {
	if err := ctx.alive("Allocate"); err != nil {
		return nil, err
	}
	block, err := ctx.memory.allocate(space, size)
	if err != nil {
		return nil, err
	}
	return &Buffer{block: block}, nil
}

// AllocateInt32 allocates a buffer holding n int32 values.
func (ctx *Context) AllocateInt32(space MemorySpace, n int) (*Buffer, error) {
	if n < 0 {
		return nil, ErrInvalidSize
	}
	return ctx.Allocate(space, n*4)
}

// MemoryPool methods

func (mp *MemoryPool) allocate(space MemorySpace, size int) (*memBlock, error) {
	if size < 0 {
		return nil, ErrInvalidSize
	}
	mp.mu.Lock()
	defer mp.mu.Unlock()

	// Round up to alignment
	physical := size
	if physical == 0 {
		physical = 1
	}
	alignedSize := (physical + MemoryAlignment - 1) &^ (MemoryAlignment - 1)

	// Try to reuse from free list
	for i, block := range mp.freeList {
		if cap(block.data) >= alignedSize && cap(block.data) <= 2*alignedSize {
			mp.freeList = append(mp.freeList[:i], mp.freeList[i+1:]...)
			if err := mp.account(space, int64(cap(block.data))); err != nil {
				mp.freeList = append(mp.freeList, block)
				return nil, err
			}
			block.data = block.data[:alignedSize]
			block.size = size
			block.space = space
			block.refs.Store(1)
			return block, nil
		}
	}

	if err := mp.account(space, int64(alignedSize)); err != nil {
		return nil, err
	}
	block := &memBlock{
		data:  make([]byte, alignedSize),
		size:  size,
		space: space,
		pool:  mp,
	}
	block.refs.Store(1)
	if space != LocalSpace {
		mp.log.Debug("allocated block",
			"space", space.String(),
			"size", humanize.Bytes(uint64(size)),
			"in_use", humanize.Bytes(uint64(mp.totalAlloc)))
	}
	return block, nil
}

// account must be called with mp.mu held.
func (mp *MemoryPool) account(space MemorySpace, bytes int64) error {
	if space != HostSpace && mp.capacity > 0 && mp.totalAlloc+bytes > mp.capacity {
		return &GUDAError{
			Type:    ErrTypeMemory,
			Op:      "Allocate",
			Message: "out of memory",
			Context: fmt.Sprintf("requested %s with %s of %s in use",
				humanize.Bytes(uint64(bytes)),
				humanize.Bytes(uint64(mp.totalAlloc)),
				humanize.Bytes(uint64(mp.capacity))),
		}
	}
	if space != HostSpace {
		mp.totalAlloc += bytes
		if mp.totalAlloc > mp.peakAlloc {
			mp.peakAlloc = mp.totalAlloc
		}
	}
	mp.live++
	return nil
}

// free returns a block whose reference count reached zero.
func (mp *MemoryPool) free(block *memBlock) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if block.space != HostSpace {
		mp.totalAlloc -= int64(cap(block.data))
	}
	mp.live--
	if len(mp.freeList) < FreeListThreshold {
		mp.freeList = append(mp.freeList, block)
	}
}

// Stats returns the device bytes currently allocated and the peak.
func (mp *MemoryPool) Stats() (allocated, peak int64) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.totalAlloc, mp.peakAlloc
}

// Live returns the number of blocks that have not been freed.
func (mp *MemoryPool) Live() int {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.live
}

// Buffer methods

// Share releases whatever b held and makes b an alias of src's storage,
// adding a reference. Sharing an empty src leaves b empty.
func (b *Buffer) Share(src *Buffer) error {
	var block *memBlock
	if src != nil && src.block != nil {
		block = src.block
		block.refs.Add(1)
	}
	old := b.block
	b.block = nil
	var err error
	if old != nil {
		err = old.release()
	}
	b.block = block
	return err
}

// Retain returns a new handle sharing b's storage.
func (b *Buffer) Retain() *Buffer {
	h := &Buffer{}
	_ = h.Share(b)
	return h
}

// Release drops the handle's reference and frees the storage when it was the
// last one. The handle is empty afterwards; releasing an empty handle is a
// no-op. Releasing a block that was already freed through another copy of
// the handle returns ErrDoubleFree.
func (b *Buffer) Release() error {
	if b == nil || b.block == nil {
		return nil
	}
	block := b.block
	b.block = nil
	return block.release()
}

func (m *memBlock) release() error {
	refs := m.refs.Add(-1)
	switch {
	case refs == 0:
		m.pool.free(m)
		return nil
	case refs < 0:
		m.refs.Add(1)
		return ErrDoubleFree
	}
	return nil
}

// Valid reports whether the handle refers to live storage.
func (b *Buffer) Valid() bool {
	return b != nil && b.block != nil && b.block.refs.Load() > 0
}

// Refs returns the number of handles sharing the storage.
func (b *Buffer) Refs() int {
	if b == nil || b.block == nil {
		return 0
	}
	return int(b.block.refs.Load())
}

// Space returns the memory space of the buffer.
func (b *Buffer) Space() MemorySpace {
	if b == nil || b.block == nil {
		return HostSpace
	}
	return b.block.space
}

// Size returns the logical size in bytes.
func (b *Buffer) Size() int {
	if b == nil || b.block == nil {
		return 0
	}
	return b.block.size
}

// Len returns the number of int32 values the buffer holds.
func (b *Buffer) Len() int {
	return b.Size() / 4
}

// Bytes returns a byte slice view of the buffer.
func (b *Buffer) Bytes() []byte {
	if b == nil || b.block == nil {
		return nil
	}
	return b.block.data[:b.block.size:b.block.size]
}

// Int32 returns an int32 slice view of the buffer memory.
// The slice can be used directly for reading and writing data.
//
// Example:
//
//	d_indices, _ := ctx.AllocateInt32(guda.DeviceSpace, 1024)
//	indices := d_indices.Int32()
//	indices[0] = 42 // Direct access
func (b *Buffer) Int32() []int32 {
	n := b.Len()
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*int32)(unsafe.Pointer(&b.block.data[0])), n)
}

func (b *Buffer) String() string {
	if b == nil || b.block == nil {
		return "Buffer(empty)"
	}
	return fmt.Sprintf("Buffer(%s, %d bytes, refs=%d)", b.block.space, b.block.size, b.block.refs.Load())
}
