package scan

import (
	"fmt"

	guda "github.com/LynnColeArt/gudascan"
)

// Config holds the launch tunables of the scan engine.
type Config struct {
	// GroupSize is the number of work-items per group (G).
	GroupSize int `json:"group_size" yaml:"group_size"`
	// NumGroups is the number of groups (P). The group-carry scan runs as
	// a single group of P work-items, so P is bounded by the device's
	// maximum group size.
	NumGroups int `json:"num_groups" yaml:"num_groups"`
	// LockstepWidth is the wave width (W). Zero selects the device's width.
	LockstepWidth int `json:"lockstep_width,omitempty" yaml:"lockstep_width"`
	// TileDim is the edge of the square transpose tile.
	TileDim int `json:"tile_dim" yaml:"tile_dim"`
	// Addend is added to every element before scanning.
	Addend int32 `json:"addend" yaml:"addend"`
}

// DefaultConfig returns the default tunables.
func DefaultConfig() Config {
	return Config{
		GroupSize: guda.DefaultGroupSize,
		NumGroups: guda.DefaultNumGroups,
		TileDim:   guda.TransposeTileDim,
		Addend:    10,
	}
}

// Validate checks the configuration against the limits of device.
func (c Config) Validate(device *guda.Device) error {
	if c.GroupSize <= 0 {
		return guda.NewConfigError("scan.Config", "group size must be positive", c.GroupSize)
	}
	if c.NumGroups <= 0 {
		return guda.NewConfigError("scan.Config", "number of groups must be positive", c.NumGroups)
	}
	if c.LockstepWidth < 0 {
		return guda.NewConfigError("scan.Config", "lockstep width must not be negative", c.LockstepWidth)
	}
	if c.TileDim <= 0 {
		return guda.NewConfigError("scan.Config", "transpose tile dimension must be positive", c.TileDim)
	}
	if device == nil || device.MaxGroupSize <= 0 {
		return nil
	}
	limit := device.MaxGroupSize
	if c.GroupSize > limit {
		return guda.NewConfigError("scan.Config",
			fmt.Sprintf("group size %d exceeds the maximum of %d on %s", c.GroupSize, limit, device.Name), c.GroupSize)
	}
	if c.NumGroups > limit {
		return guda.NewConfigError("scan.Config",
			fmt.Sprintf("number of groups %d exceeds the maximum group size of %d on %s", c.NumGroups, limit, device.Name), c.NumGroups)
	}
	if c.TileDim*c.TileDim > limit {
		return guda.NewConfigError("scan.Config",
			fmt.Sprintf("transpose tile %dx%d exceeds the maximum group size of %d on %s", c.TileDim, c.TileDim, limit, device.Name), c.TileDim)
	}
	return nil
}

// lockstep resolves the wave width for device.
func (c Config) lockstep(device *guda.Device) int {
	if c.LockstepWidth > 0 {
		return c.LockstepWidth
	}
	return guda.LockstepFor(device)
}
