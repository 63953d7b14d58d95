package utils

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewDefaultLogger(LevelInfo, &buf)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	out := buf.String()
	assert.NotContains(t, out, "debug message")
	assert.Contains(t, out, "info message")
	assert.Contains(t, out, "warn message")
	assert.Contains(t, out, "error message")
}

func TestDefaultLogger_SetLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewDefaultLogger(LevelError, &buf)

	logger.Info("hidden")
	logger.SetLevel(LevelDebug)
	logger.Debug("visible")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
}

func TestDefaultLogger_Formatting(t *testing.T) {
	var buf bytes.Buffer
	logger := NewDefaultLogger(LevelInfo, &buf)

	logger.Info("scheduled %d nodes in partition %d", 12, 3)

	assert.Contains(t, buf.String(), "scheduled 12 nodes in partition 3")
	assert.Contains(t, buf.String(), "[INFO]")
}

func TestDefaultLogger_WithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewDefaultLogger(LevelInfo, &buf)

	withFields := logger.WithField("pass", "encapsulate").WithFields(map[string]interface{}{"partition": 1})
	withFields.Info("containers created")

	out := buf.String()
	assert.Contains(t, out, "pass=encapsulate")
	assert.Contains(t, out, "partition=1")

	// The parent logger must be unaffected.
	buf.Reset()
	logger.Info("plain")
	assert.NotContains(t, buf.String(), "pass=")
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  LogLevel
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"WARNING", LevelWarn},
		{"error", LevelError},
		{"bogus", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLogLevel(tt.input))
		})
	}
}

func TestLogLevel_String(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "INFO", LevelInfo.String())
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "UNKNOWN", LogLevel(42).String())
}

func TestNullLogger(t *testing.T) {
	logger := &NullLogger{}
	logger.Debug("a")
	logger.Info("b")
	logger.Warn("c")
	logger.Error("d")
	assert.Same(t, logger, logger.WithField("k", "v").(*NullLogger))
}

func TestGlobalLogger(t *testing.T) {
	orig := GetGlobalLogger()
	defer SetGlobalLogger(orig)

	var buf bytes.Buffer
	SetGlobalLogger(NewDefaultLogger(LevelInfo, &buf))
	GetGlobalLogger().Info("through global")

	assert.True(t, strings.Contains(buf.String(), "through global"))
}
