package guda

import (
	"runtime"
	"strings"

	"golang.org/x/sys/cpu"
)

// CPUFeatures tracks the instruction set extensions that decide how many
// int32 lanes the host executes in lockstep.
type CPUFeatures struct {
	HasSSE4    bool
	HasAVX2    bool
	HasAVX512F bool
	HasASIMD   bool // ARM64 Advanced SIMD (NEON)
	HasSVE     bool
}

// Global CPU feature detection
var cpuFeatures CPUFeatures

func init() {
	detectCPUFeatures()
}

// detectCPUFeatures populates the global cpuFeatures struct
func detectCPUFeatures() {
	cpuFeatures = CPUFeatures{
		HasSSE4:    cpu.X86.HasSSE41 || cpu.X86.HasSSE42,
		HasAVX2:    cpu.X86.HasAVX2,
		HasAVX512F: cpu.X86.HasAVX512F,
		HasASIMD:   cpu.ARM64.HasASIMD,
		HasSVE:     cpu.ARM64.HasSVE,
	}
}

// HostLockstepWidth returns the number of int32 lanes of the widest vector
// unit on the host. It is the lockstep width of the "cpu" device.
func HostLockstepWidth() int {
	switch {
	case cpuFeatures.HasAVX512F:
		return 16
	case cpuFeatures.HasAVX2:
		return 8
	case cpuFeatures.HasSSE4, cpuFeatures.HasASIMD:
		return 4
	default:
		return DefaultLockstepWidth
	}
}

// LockstepFor derives the lockstep width from the device vendor: NVIDIA
// GPUs run 32-wide warps, AMD GPUs 64-wide wavefronts. Anything else uses the
// width recorded on the device, or 1.
func LockstepFor(d *Device) int {
	if d == nil {
		return DefaultLockstepWidth
	}
	if d.Type == DeviceTypeGPU {
		vendor := strings.ToLower(d.Vendor)
		switch {
		case strings.Contains(vendor, "nvidia"):
			return NvidiaLockstepWidth
		case strings.Contains(vendor, "amd"), strings.Contains(vendor, "advanced micro devices"):
			return AMDLockstepWidth
		}
	}
	if d.LockstepWidth > 0 {
		return d.LockstepWidth
	}
	return DefaultLockstepWidth
}

// GetCPUInfo returns a string describing available CPU features
func GetCPUInfo() string {
	features := []string{}

	if cpuFeatures.HasSSE4 {
		features = append(features, "SSE4")
	}
	if cpuFeatures.HasAVX2 {
		features = append(features, "AVX2")
	}
	if cpuFeatures.HasAVX512F {
		features = append(features, "AVX512F")
	}
	if cpuFeatures.HasASIMD {
		features = append(features, "ASIMD")
	}
	if cpuFeatures.HasSVE {
		features = append(features, "SVE")
	}
	if len(features) == 0 {
		return runtime.GOARCH + " (scalar)"
	}
	return runtime.GOARCH + " (" + strings.Join(features, ", ") + ")"
}
