package guda

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// KernelStat is the accumulated runtime of one kernel.
type KernelStat struct {
	Name  string        `json:"name"`
	Runs  int           `json:"runs"`
	Total time.Duration `json:"total_ns"`
}

// Average returns the mean runtime per launch.
func (s KernelStat) Average() time.Duration {
	if s.Runs == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Runs)
}

// KernelStats accumulates per-kernel launch counts and runtimes. It is safe
// for concurrent use.
type KernelStats struct {
	mu     sync.Mutex
	order  []string
	byName map[string]*KernelStat
}

// NewKernelStats returns an empty set of statistics.
func NewKernelStats() *KernelStats {
	return &KernelStats{byName: make(map[string]*KernelStat)}
}

func (s *KernelStats) record(name string, elapsed time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.byName[name]
	if !ok {
		st = &KernelStat{Name: name}
		s.byName[name] = st
		s.order = append(s.order, name)
	}
	st.Runs++
	st.Total += elapsed
}

// Snapshot returns the statistics in order of first launch.
func (s *KernelStats) Snapshot() []KernelStat {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]KernelStat, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, *s.byName[name])
	}
	return out
}

// Reset clears all statistics.
func (s *KernelStats) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = nil
	s.byName = make(map[string]*KernelStat)
}

// Report writes one line per kernel followed by a cumulative line:
//
//	Kernel scan_local executed      2 times, with average runtime:     35us	and total runtime:     70us
//	Ran 2 kernels with cumulative runtime:     70us
func (s *KernelStats) Report(w io.Writer) error {
	stats := s.Snapshot()
	width := 0
	for _, st := range stats {
		width = max(width, len(st.Name))
	}
	var runs int
	var total time.Duration
	for _, st := range stats {
		_, err := fmt.Fprintf(w, "Kernel %-*s executed %6d times, with average runtime: %6dus\tand total runtime: %6dus\n",
			width, st.Name, st.Runs, st.Average().Microseconds(), st.Total.Microseconds())
		if err != nil {
			return err
		}
		runs += st.Runs
		total += st.Total
	}
	_, err := fmt.Fprintf(w, "Ran %d kernels with cumulative runtime: %6dus\n", runs, total.Microseconds())
	return err
}
