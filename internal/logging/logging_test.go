package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New("json", "warn", &buf)

	logger.Info("hidden")
	logger.Warn("shown", "gameId", "01HZX8K6Q0M8Y1V2W3X4Y5Z6A7")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "01HZX8K6Q0M8Y1V2W3X4Y5Z6A7", entry["gameId"])
}

func TestNewPretty(t *testing.T) {
	var buf bytes.Buffer
	logger := New("pretty", "info", &buf)

	logger.Info("server starting", "port", 8080)

	assert.Contains(t, buf.String(), "server starting")
}
