package guda

import (
	"fmt"
	"runtime"
	"strings"
)

// DeviceType distinguishes CPU-like from GPU-like device profiles.
type DeviceType int

const (
	DeviceTypeCPU DeviceType = iota
	DeviceTypeGPU
)

func (t DeviceType) String() string {
	switch t {
	case DeviceTypeCPU:
		return "CPU"
	case DeviceTypeGPU:
		return "GPU"
	default:
		return "Unknown"
	}
}

// Device represents a compute device. In GUDA every device executes on the
// host CPU; GPU profiles only change the vendor-derived launch parameters
// (lockstep width, group limits) so kernels can be exercised under the
// geometry a real GPU would use.
type Device struct {
	ID            int        // Unique device identifier
	Name          string     // Human-readable device name
	Vendor        string     // Platform vendor, drives the lockstep width
	Type          DeviceType // CPU or GPU profile
	TotalMem      uint64     // Total available memory in bytes
	NumCores      int        // Number of CPU cores backing the device
	MaxGroupSize  int        // Maximum work-items per group
	LocalMemSize  int        // Local memory per group in bytes, 0 for unlimited
	LockstepWidth int        // Lockstep width when not derived from the vendor
}

func (d *Device) String() string {
	return fmt.Sprintf("%s (%s %s)", d.Name, d.Vendor, d.Type)
}

// ListDevices returns the available device profiles. The first entry is the
// host CPU.
func ListDevices() []*Device {
	cores := runtime.NumCPU()
	return []*Device{
		{
			ID:            0,
			Name:          "CPU",
			Vendor:        "GUDA " + runtime.GOARCH,
			Type:          DeviceTypeCPU,
			TotalMem:      DefaultDeviceMemory,
			NumCores:      cores,
			MaxGroupSize:  MaxGroupSize,
			LocalMemSize:  HostLocalMemSize,
			LockstepWidth: HostLockstepWidth(),
		},
		{
			ID:           1,
			Name:         "Simulated GeForce",
			Vendor:       "NVIDIA CUDA",
			Type:         DeviceTypeGPU,
			TotalMem:     DefaultDeviceMemory,
			NumCores:     cores,
			MaxGroupSize: MaxGroupSize,
			LocalMemSize: 48 << 10,
		},
		{
			ID:           2,
			Name:         "Simulated Radeon",
			Vendor:       "AMD Accelerated Parallel Processing",
			Type:         DeviceTypeGPU,
			TotalMem:     DefaultDeviceMemory,
			NumCores:     cores,
			MaxGroupSize: 256,
			LocalMemSize: 64 << 10,
		},
	}
}

// DefaultDevice returns the host CPU device.
func DefaultDevice() *Device {
	return ListDevices()[0]
}

// SelectDevice returns the first device whose vendor contains platform and
// whose name contains device, both compared case-insensitively. Empty
// strings match anything.
func SelectDevice(platform, device string) (*Device, error) {
	platform = strings.ToLower(platform)
	device = strings.ToLower(device)
	for _, d := range ListDevices() {
		if platform != "" && !strings.Contains(strings.ToLower(d.Vendor), platform) {
			continue
		}
		if device != "" && !strings.Contains(strings.ToLower(d.Name), device) {
			continue
		}
		return d, nil
	}
	return nil, &GUDAError{
		Type:    ErrTypeDevice,
		Op:      "SelectDevice",
		Message: "no device matches the selection",
		Context: fmt.Sprintf("platform=%q device=%q", platform, device),
	}
}
