package guda

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// RunResult captures the wall time of a single timed run
type RunResult struct {
	Run       int           `json:"run"`
	Elapsed   time.Duration `json:"elapsed_ns"`
	Timestamp time.Time     `json:"timestamp"`
}

// RunSummary is the JSON document written at the end of a session
type RunSummary struct {
	Session      string       `json:"session"`
	Device       string       `json:"device"`
	InputLength  int          `json:"input_length"`
	Geometry     any          `json:"geometry,omitempty"`
	Runs         []RunResult  `json:"runs"`
	MeanMicros   int64        `json:"mean_us"`
	MinMicros    int64        `json:"min_us"`
	MaxMicros    int64        `json:"max_us"`
	Kernels      []KernelStat `json:"kernels,omitempty"`
	Timestamp    time.Time    `json:"timestamp"`
	GUDAVersion  string       `json:"guda_version,omitempty"`
	VerifyResult string       `json:"verify,omitempty"`
}

// RunLog records timed runs. Every recorded run is written to the runtime
// writer (if any) as its elapsed microseconds on a line of its own.
type RunLog struct {
	mu      sync.Mutex
	w       io.Writer
	session string
	results []RunResult
}

// NewRunLog creates a run log for a new session writing runtimes to w.
// w may be nil.
func NewRunLog(w io.Writer) *RunLog {
	return &RunLog{
		w:       w,
		session: uuid.NewString(),
	}
}

// Session returns the unique id of the session.
func (l *RunLog) Session() string {
	return l.session
}

// Record logs a single timed run.
func (l *RunLog) Record(elapsed time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.results = append(l.results, RunResult{
		Run:       len(l.results),
		Elapsed:   elapsed,
		Timestamp: time.Now(),
	})
	if l.w == nil {
		return nil
	}
	// Write immediately to avoid losing data on crash
	if _, err := fmt.Fprintf(l.w, "%d\n", elapsed.Microseconds()); err != nil {
		return NewExecutionError("RunLog", "failed to write runtime", err)
	}
	return nil
}

// Results returns the recorded runs.
func (l *RunLog) Results() []RunResult {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]RunResult(nil), l.results...)
}

// Summary builds the session summary. stats may be nil.
func (l *RunLog) Summary(device string, inputLength int, geometry any, stats *KernelStats) RunSummary {
	results := l.Results()
	s := RunSummary{
		Session:     l.session,
		Device:      device,
		InputLength: inputLength,
		Geometry:    geometry,
		Runs:        results,
		Timestamp:   time.Now(),
	}
	s.GUDAVersion, _ = Version()
	if stats != nil {
		s.Kernels = stats.Snapshot()
	}
	if len(results) == 0 {
		return s
	}
	var total time.Duration
	lo, hi := results[0].Elapsed, results[0].Elapsed
	for _, r := range results {
		total += r.Elapsed
		lo = min(lo, r.Elapsed)
		hi = max(hi, r.Elapsed)
	}
	s.MeanMicros = (total / time.Duration(len(results))).Microseconds()
	s.MinMicros = lo.Microseconds()
	s.MaxMicros = hi.Microseconds()
	return s
}

// WriteSummary writes s as indented JSON to path.
func WriteSummary(path string, s RunSummary) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run summary: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
