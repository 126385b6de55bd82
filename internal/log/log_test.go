package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextLoggerJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	ctx := NewContext(context.Background(), LevelInfo, OutputJSON, &buf)

	Info(ctx, "request accepted", "verification_id", "abc-123")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "request accepted", entry["msg"])
	assert.Equal(t, "abc-123", entry["verification_id"])
	assert.Equal(t, "INFO", entry["level"])
}

func TestContextLoggerTextOutput(t *testing.T) {
	var buf bytes.Buffer
	ctx := NewContext(context.Background(), LevelInfo, OutputText, &buf)

	Warn(ctx, "callback delivery failed", "err", "connection refused")

	assert.Contains(t, buf.String(), "callback delivery failed")
	assert.Contains(t, buf.String(), "level=WARN")
}

func TestContextLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	ctx := NewContext(context.Background(), LevelWarn, OutputText, &buf)

	Debug(ctx, "not emitted")
	Info(ctx, "not emitted either")
	assert.Empty(t, buf.String())

	Error(ctx, "emitted")
	assert.Contains(t, buf.String(), "emitted")
}
