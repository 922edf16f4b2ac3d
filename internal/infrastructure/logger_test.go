package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"purepresenter/internal/config"
)

func TestInitializeLogger(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	logFile := filepath.Join(t.TempDir(), "logs", "test.log")

	cfg := config.LoggingConfig{
		Level:    "info",
		Format:   "json",
		Output:   "file",
		FilePath: logFile,
	}

	logger, err := InitializeLogger(cfg)
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.Same(t, logger, GetLogger())

	logger.Info("test message", "key", "value")
	require.NoError(t, CloseLogFile())

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(content, &entry))
	assert.Equal(t, "test message", entry["msg"])
	assert.Equal(t, "value", entry["key"])
	assert.Equal(t, "INFO", entry["level"])
}

func TestInitializeLogger_OnlyOnce(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	first, err := InitializeLogger(config.LoggingConfig{Level: "info", Output: "discard"})
	require.NoError(t, err)

	second, err := InitializeLogger(config.LoggingConfig{Level: "debug", Output: "discard"})
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestTraceIDInjection(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, "info")

	ctx := WithTraceID(context.Background(), "trace-123")
	logger.InfoContext(ctx, "with trace")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "trace-123", entry["trace_id"])

	buf.Reset()
	logger.With("component", "test").InfoContext(ctx, "derived logger")
	assert.Contains(t, buf.String(), `"trace_id":"trace-123"`)
	assert.Contains(t, buf.String(), `"component":"test"`)
}

func TestLogLevels(t *testing.T) {
	tests := []struct {
		level     string
		wantDebug bool
		wantInfo  bool
		wantWarn  bool
	}{
		{level: "debug", wantDebug: true, wantInfo: true, wantWarn: true},
		{level: "info", wantInfo: true, wantWarn: true},
		{level: "warning", wantWarn: true},
		{level: "error"},
		{level: "bogus", wantInfo: true, wantWarn: true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewJSONLogger(&buf, tt.level)

			logger.Debug("debug line")
			logger.Info("info line")
			logger.Warn("warn line")

			out := buf.String()
			assert.Equal(t, tt.wantDebug, strings.Contains(out, "debug line"))
			assert.Equal(t, tt.wantInfo, strings.Contains(out, "info line"))
			assert.Equal(t, tt.wantWarn, strings.Contains(out, "warn line"))
		})
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetTraceID(ctx))

	ctx = EnsureTraceID(ctx)
	traceID := GetTraceID(ctx)
	assert.Len(t, traceID, 36)

	// an existing id is kept
	assert.Equal(t, traceID, GetTraceID(EnsureTraceID(ctx)))
}

func TestLoggerHelpers(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, "info")

	WithComponent(logger, "license.manager").Info("component line")
	assert.Contains(t, buf.String(), `"component":"license.manager"`)

	buf.Reset()
	WithError(logger, assert.AnError).Info("error line")
	assert.Contains(t, buf.String(), assert.AnError.Error())

	assert.Same(t, logger, WithError(logger, nil))
}
