package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew_TextLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := New("info", "text", &buf)
	logger.Debug("hidden")
	logger.Warn("reference not found", "doi", "10.1/x")

	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, "level=WARN")
	require.Contains(t, out, "doi=10.1/x")
}

func TestNew_DebugJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Level(true), "json", &buf)
	logger.Debug("scanning", "files", 3)

	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &record))
	require.Equal(t, "DEBUG", record["level"])
	require.Equal(t, "scanning", record["msg"])
	require.EqualValues(t, 3, record["files"])
}

func TestValidateFormat(t *testing.T) {
	require.NoError(t, ValidateFormat(""))
	require.NoError(t, ValidateFormat("JSON"))
	require.Error(t, ValidateFormat("logfmt"))
}
