package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	log := NewJSONLogger(&buf, false)

	log.Info("[Agent] rendered %d rows for %s", 3, "#42")
	log.Debug("hidden")
	log.Warn("no args %d")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "[Agent] rendered 3 rows for #42", entry["message"])

	require.NoError(t, json.Unmarshal([]byte(lines[1]), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "no args %d", entry["message"])
}

func TestJSONLoggerDebug(t *testing.T) {
	var buf bytes.Buffer
	NewJSONLogger(&buf, true).Debug("visible %s", "now")
	assert.Contains(t, buf.String(), `"visible now"`)
}

func TestSilentLogger(t *testing.T) {
	var l Logger = NewSilentLogger()
	l.Info("x")
	l.Warn("x")
	l.Error("x")
	l.Debug("x")
}
