package obslog_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airsstack/mcp-runtime/internal/obslog"
)

func TestNew_WritesJSONToRotatingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.log")

	logger := obslog.New(obslog.Options{
		Level:      slog.LevelInfo,
		FilePath:   path,
		MaxSizeMB:  5,
		MaxBackups: 1,
		MaxAgeDays: 1,
		Stdio:      true,
	})
	logger.Info("hello", "key", "value")

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var record map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &record))
	assert.Equal(t, "hello", record["msg"])
	assert.Equal(t, "value", record["key"])
}

func TestNew_RespectsLevel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.log")

	logger := obslog.New(obslog.Options{Level: slog.LevelWarn, FilePath: path, Stdio: true})
	logger.Info("should not appear")
	logger.Warn("should appear")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "should not appear")
	assert.Contains(t, string(data), "should appear")
}
