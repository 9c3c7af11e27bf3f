package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func logLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestWarnWithMapFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&Config{Level: DebugLevel, Output: &buf})

	log.Warn("authorization denied", map[string]interface{}{
		"role":       "receptionist",
		"permission": "vitals:record",
	})

	entry := logLine(t, &buf)
	assert.Equal(t, "authorization denied", entry["message"])
	assert.Equal(t, "receptionist", entry["role"])
	assert.Equal(t, "vitals:record", entry["permission"])
}

func TestInfoWithKeyValuePairs(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&Config{Level: DebugLevel, Output: &buf})

	log.Info("worker started", "batch_size", 50)

	entry := logLine(t, &buf)
	assert.Equal(t, "worker started", entry["message"])
	assert.Equal(t, float64(50), entry["batch_size"])
}

func TestErrorCarriesCause(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&Config{Level: DebugLevel, Output: &buf})

	log.Error(errors.New("connection refused"), "database unavailable")

	entry := logLine(t, &buf)
	assert.Equal(t, "connection refused", entry["error"])
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&Config{Level: WarnLevel, Output: &buf})

	log.Debug("noise")
	log.Info("noise")
	assert.Empty(t, buf.Bytes())
}
