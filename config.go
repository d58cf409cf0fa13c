// Package guda configuration constants
package guda

// Launch geometry defaults
const (
	// Default work-group size for kernels
	DefaultGroupSize = 256

	// Default number of work-groups used by the scan
	DefaultNumGroups = 128

	// Default lockstep width when nothing better is known about the device
	DefaultLockstepWidth = 1

	// Maximum work-items per group (CUDA/OpenCL compatibility)
	MaxGroupSize = 1024

	// Side of the square tile used by the transpose kernel
	TransposeTileDim = 16

	// Local memory per group on the host device
	HostLocalMemSize = 1 << 20
)

// Vendor lockstep widths
const (
	// NVIDIA warp size
	NvidiaLockstepWidth = 32

	// AMD wavefront size
	AMDLockstepWidth = 64
)

// Memory pool parameters
const (
	// Memory alignment for allocations (cache line size)
	MemoryAlignment = 64

	// Default capacity of an emulated device
	DefaultDeviceMemory = 4 << 30

	// Free list length above which released blocks are dropped instead of kept
	FreeListThreshold = 100
)

// Queue parameters
const (
	// Commands that may be pending on a queue before Enqueue blocks
	QueueDepth = 1000
)
