package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLine(t *testing.T, l *Logger, logFn func()) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	l.SetOutput(&buf)
	logFn()

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record), "log line should be JSON: %s", buf.String())
	return record
}

func TestNew_JSONOutput(t *testing.T) {
	l := New(LoggingConfig{Level: "debug", Format: "json"})

	record := captureLine(t, l, func() { l.Infof("hello %s", "world") })
	assert.Equal(t, "hello world", record["msg"])
	assert.Equal(t, "info", record["level"])
	assert.NotEmpty(t, record["time"])
}

func TestNew_LevelFiltering(t *testing.T) {
	l := New(LoggingConfig{Level: "warn", Format: "json"})

	var buf bytes.Buffer
	l.SetOutput(&buf)
	l.Info("suppressed")
	assert.Zero(t, buf.Len(), "info should be filtered at warn level")

	l.Warn("kept")
	assert.NotZero(t, buf.Len())
}

func TestNew_UnknownLevelFallsBack(t *testing.T) {
	l := New(LoggingConfig{Level: "verbose", Format: "json"})

	var buf bytes.Buffer
	l.SetOutput(&buf)
	l.Debug("suppressed at default info level")
	assert.Zero(t, buf.Len())
	l.Info("kept")
	assert.NotZero(t, buf.Len())
}

func TestWithFieldAndError(t *testing.T) {
	l := New(LoggingConfig{Level: "info", Format: "json"})
	bound := l.WithField("component", "policies").WithError(errors.New("boom"))

	record := captureLine(t, bound, func() { bound.Warn("failed") })
	assert.Equal(t, "policies", record["component"])
	assert.Equal(t, "boom", record["error"])
	assert.Equal(t, "warning", record["level"])
}

func TestNewDefault_BindsComponent(t *testing.T) {
	l := NewDefault("gateway")

	record := captureLine(t, l, func() { l.Info("up") })
	assert.Equal(t, "gateway", record["component"])
}
