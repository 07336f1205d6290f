package util

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"", LevelInfo},
		{"bogus", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLogLevel(tt.input))
		})
	}
}

func TestWriterLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger("warn", &buf, FormatText)

	logger.Info("hidden")
	logger.Warnf("shown %d", 1)
	logger.Error("also shown", Field{Key: "column", Value: 3})

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARN] shown 1")
	assert.Contains(t, out, "[ERROR] also shown column=3")

	logger.SetLevel(LevelDebug)
	logger.Debug("now visible")
	assert.Contains(t, buf.String(), "[DEBUG] now visible")
}

func TestWriterLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger("info", &buf, FormatJSON)
	logger.With(Field{Key: "component", Value: "cache"}).Info("evicted", Field{Key: "removed", Value: 10})

	var entry struct {
		Level   string                 `json:"level"`
		Message string                 `json:"message"`
		Fields  map[string]interface{} `json:"fields"`
	}
	require.NoError(t, sonic.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry))
	assert.Equal(t, "INFO", entry.Level)
	assert.Equal(t, "evicted", entry.Message)
	assert.Equal(t, "cache", entry.Fields["component"])
	assert.EqualValues(t, 10, entry.Fields["removed"])
}

func TestNewLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heatmap.log")
	logger, err := NewLogger("debug", path, false)
	require.NoError(t, err)

	logger.Debugf("column %d revealed", 7)
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "column 7 revealed")
}

func TestNewLoggerBadPath(t *testing.T) {
	_, err := NewLogger("info", filepath.Join(t.TempDir(), "missing", "x.log"), false)
	assert.Error(t, err)
}

func TestGlobalLogger(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(NewWriterLogger("debug", &buf, FormatText))
	defer SetLogger(nil)

	LogInfo("started")
	LogDebugf("tick %d", 2)
	LogWarn("slow source")
	LogErrorf("failed: %s", "boom")

	out := buf.String()
	assert.Contains(t, out, "started")
	assert.Contains(t, out, "tick 2")
	assert.Contains(t, out, "slow source")
	assert.Contains(t, out, "failed: boom")

	SetLogger(nil)
	assert.NotPanics(t, func() { LogInfo("dropped") })
	assert.NoError(t, CloseLogger())
}
