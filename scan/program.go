package scan

import (
	"fmt"
	"strings"

	guda "github.com/LynnColeArt/gudascan"
)

// kernelInfo is the per-group resource usage of one kernel of the program.
type kernelInfo struct {
	name       string
	groupSize  int
	localBytes int
}

// program lists the kernels a scan launches with cfg, sized for their
// largest launch.
func program(cfg Config) []kernelInfo {
	tile := &Transpose{TileDim: cfg.TileDim}
	return []kernelInfo{
		{"map_add", cfg.GroupSize, 0},
		{"transpose_i32", tile.Local().Size(), tile.LocalInts() * 4},
		{"scan_local", max(cfg.GroupSize, cfg.NumGroups), max(cfg.GroupSize, cfg.NumGroups) * 4},
		{"group_lasts", cfg.GroupSize, 0},
		{"carry_broadcast", cfg.GroupSize, 0},
		{"combine", cfg.GroupSize, 0},
	}
}

// buildProgram checks that every kernel fits the local memory of device.
// The returned build error carries one log line per kernel.
func buildProgram(device *guda.Device, cfg Config) error {
	if device == nil || device.LocalMemSize <= 0 {
		return nil
	}
	var log strings.Builder
	failed := 0
	for _, k := range program(cfg) {
		status := "ok"
		if k.localBytes > device.LocalMemSize {
			status = "error: local memory exceeds the device limit"
			failed++
		}
		fmt.Fprintf(&log, "%s: group size %d, %d bytes local memory, %s\n", k.name, k.groupSize, k.localBytes, status)
	}
	if failed > 0 {
		return guda.NewBuildError("scan.NewEngine",
			fmt.Sprintf("%d kernel(s) need more than %d bytes of local memory on %s", failed, device.LocalMemSize, device.Name),
			log.String())
	}
	return nil
}
