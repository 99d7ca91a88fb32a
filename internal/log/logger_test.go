package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWithCapture(t *testing.T) {
	var buf bytes.Buffer

	opts := &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}
	handler := slog.NewJSONHandler(&buf, opts)
	logger := New(handler)

	logger.Debug("debug message", String("type", "filter"))
	logger.Info("info message")
	logger.Warn("warn message", String("from", "left"))
	logger.Error("error message")

	output := buf.String()
	assert.Contains(t, output, "debug message")
	assert.Contains(t, output, "info message")
	assert.Contains(t, output, "warn message")
	assert.Contains(t, output, "error message")

	lines := strings.Split(strings.TrimSpace(output), "\n")
	for _, line := range lines {
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		assert.NotNil(t, entry["msg"])
		assert.NotNil(t, entry["level"])
	}
}

func TestLoggerWith(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, nil)
	logger := New(handler)

	ctxLogger := logger.With(
		String("component", "rewriter"),
		String("version", "1.0.0"),
	)

	ctxLogger.Info("test message")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "rewriter", entry["component"])
	assert.Equal(t, "1.0.0", entry["version"])
}

func TestLoggerWithContext(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, nil)
	logger := New(handler)

	type contextKey string
	ctx := context.WithValue(context.Background(), contextKey("request_id"), "12345")
	ctxLogger := logger.WithContext(ctx)

	ctxLogger.Info("context test")

	assert.Positive(t, buf.Len())
}

func TestSetDefaultAndDefault(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, nil)
	SetDefault(New(handler))

	Default().Info("via default logger")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "via default logger", entry["msg"])
}

func TestStringAttr(t *testing.T) {
	attr := String("node_type", "Filter")
	assert.Equal(t, "node_type", attr.Key)
	assert.Equal(t, "Filter", attr.Value.String())
}
