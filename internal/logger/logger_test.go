package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	log := JSON(&buf, slog.LevelInfo)
	log.Info("hello", "key", "value")

	output := buf.String()
	assert.Contains(t, output, "hello")
	assert.Contains(t, output, `"key":"value"`)
	assert.Contains(t, output, `"level":"INFO"`)
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := JSON(&buf, slog.LevelWarn)
	log.Info("should not appear")
	log.Debug("also should not appear")
	assert.Zero(t, buf.Len())

	log.Warn("should appear")
	assert.Contains(t, buf.String(), "should appear")
}

func TestPretty(t *testing.T) {
	var buf bytes.Buffer
	h := NewPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}).WithoutColor()
	log := New(h)
	log.Debug("kernel finished", "name", "scan_local", "elapsed", 1500*time.Microsecond, "msg", "two words")

	output := buf.String()
	assert.Contains(t, output, "DEBUG kernel finished")
	assert.Contains(t, output, "name=scan_local")
	assert.Contains(t, output, "elapsed=1.5ms")
	assert.Contains(t, output, `msg="two words"`)
	assert.NotContains(t, output, "\033[")
}

func TestPrettyWithGroupAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := New(NewPrettyHandler(&buf, nil).WithoutColor()).With("device", "CPU").WithGroup("scan")
	log.Info("done", "n", 4)

	output := buf.String()
	assert.Contains(t, output, "device=CPU")
	assert.Contains(t, output, "scan.n=4")
}

func TestPrettyHandlerEnabled(t *testing.T) {
	h := NewPrettyHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn})
	ctx := context.Background()
	assert.False(t, h.Enabled(ctx, slog.LevelInfo))
	assert.True(t, h.Enabled(ctx, slog.LevelWarn))
	assert.True(t, h.Enabled(ctx, slog.LevelError))
}

func TestForFormat(t *testing.T) {
	for _, format := range []string{"", "pretty", "json", "text", "JSON"} {
		log, err := ForFormat(format, &bytes.Buffer{}, slog.LevelInfo)
		require.NoError(t, err, format)
		require.NotNil(t, log, format)
	}
	_, err := ForFormat("xml", &bytes.Buffer{}, slog.LevelInfo)
	require.Error(t, err)
}

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	log := JSON(&buf, slog.LevelInfo)

	ctx := WithContext(context.Background(), log)
	FromContext(ctx).Info("roundtrip test")
	assert.Contains(t, buf.String(), "roundtrip test")

	assert.NotNil(t, FromContext(context.Background()))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.expected, ParseLevel(tc.input), tc.input)
	}
}
