package guda

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKernelStatsReport(t *testing.T) {
	s := NewKernelStats()
	s.record("map_add", 10*time.Microsecond)
	s.record("scan_local", 35*time.Microsecond)
	s.record("map_add", 10*time.Microsecond)

	var buf bytes.Buffer
	require.NoError(t, s.Report(&buf))
	assert.Equal(t,
		"Kernel map_add    executed      2 times, with average runtime:     10us\tand total runtime:     20us\n"+
			"Kernel scan_local executed      1 times, with average runtime:     35us\tand total runtime:     35us\n"+
			"Ran 3 kernels with cumulative runtime:     55us\n",
		buf.String())

	snap := s.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, 10*time.Microsecond, snap[0].Average())

	s.Reset()
	assert.Empty(t, s.Snapshot())
	buf.Reset()
	require.NoError(t, s.Report(&buf))
	assert.Equal(t, "Ran 0 kernels with cumulative runtime:      0us\n", buf.String())
}

func TestRunLog(t *testing.T) {
	var buf bytes.Buffer
	l := NewRunLog(&buf)
	_, err := uuid.Parse(l.Session())
	require.NoError(t, err)

	require.NoError(t, l.Record(1500*time.Microsecond))
	require.NoError(t, l.Record(500*time.Microsecond))
	assert.Equal(t, "1500\n500\n", buf.String())

	stats := NewKernelStats()
	stats.record("combine", time.Millisecond)
	s := l.Summary("CPU", 4, map[string]int{"num_threads": 32}, stats)
	assert.Equal(t, l.Session(), s.Session)
	assert.Len(t, s.Runs, 2)
	assert.Equal(t, int64(1000), s.MeanMicros)
	assert.Equal(t, int64(500), s.MinMicros)
	assert.Equal(t, int64(1500), s.MaxMicros)
	require.Len(t, s.Kernels, 1)

	path := filepath.Join(t.TempDir(), "summary.json")
	require.NoError(t, WriteSummary(path, s))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, l.Session(), decoded["session"])
	assert.Equal(t, "CPU", decoded["device"])
	assert.EqualValues(t, 1000, decoded["mean_us"])
}

func TestRunLogWithoutWriter(t *testing.T) {
	l := NewRunLog(nil)
	require.NoError(t, l.Record(time.Millisecond))
	assert.Len(t, l.Results(), 1)
	assert.Zero(t, NewRunLog(nil).Summary("CPU", 0, nil, nil).MeanMicros)
}
