package scan

// Geometry is the launch layout of one scan. The input of length N is
// split into NumThreads = NumGroups*GroupSize contiguous chunks of
// ElemsPerThread elements, padded up to PaddedLen = NumThreads*ElemsPerThread.
type Geometry struct {
	N              int `json:"n"`
	GroupSize      int `json:"group_size"`
	NumGroups      int `json:"num_groups"`
	NumThreads     int `json:"num_threads"`
	ElemsPerThread int `json:"elems_per_thread"`
	Padding        int `json:"padding"`
	PaddedLen      int `json:"padded_len"`
	Lockstep       int `json:"lockstep"`
}

// NewGeometry computes the layout for n elements. cfg must be valid.
func NewGeometry(n int, cfg Config, lockstep int) Geometry {
	threads := cfg.NumGroups * cfg.GroupSize
	g := Geometry{
		N:          n,
		GroupSize:  cfg.GroupSize,
		NumGroups:  cfg.NumGroups,
		NumThreads: threads,
		Lockstep:   max(lockstep, 1),
	}
	g.ElemsPerThread = (n + threads - 1) / threads
	g.Padding = (threads - n%threads) % threads
	g.PaddedLen = n + g.Padding
	return g
}

// Waves returns the number of waves in a group.
func (g Geometry) Waves() int {
	return (g.GroupSize + g.Lockstep - 1) / g.Lockstep
}
