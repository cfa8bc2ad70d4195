package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "kiosk.log")
	logger, err := NewLogger(Options{Service: "kiosk-orders", Env: "test", Level: "debug", File: path})
	require.NoError(t, err)

	WithTrace(logger, "", "").Debug("storage_in_memory")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var line map[string]any
	require.NoError(t, json.Unmarshal(data, &line))
	assert.Equal(t, "storage_in_memory", line["msg"])
	assert.Equal(t, "debug", line["level"])
	assert.Equal(t, "kiosk-orders", line["service"])
	assert.Equal(t, "test", line["env"])
	assert.Equal(t, "unknown", line["trace_id"])
	assert.Contains(t, line, "ts")
}

func TestNewLoggerRejectsUnknownLevel(t *testing.T) {
	_, err := NewLogger(Options{Service: "kiosk-orders", Level: "loud"})
	assert.Error(t, err)
}
