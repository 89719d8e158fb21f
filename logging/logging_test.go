package logging

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_InvalidLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Level = "loud"
	_, err := New(cfg)
	assert.Error(t, err)
}

func TestNew_InvalidFormat(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Format = "xml"
	_, err := New(cfg)
	assert.Error(t, err)
}

func TestLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Level = "warn"
	logger, err := newLogger(cfg, &buf)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown", "profile", "p1")
	require.NoError(t, logger.Close())

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "p1")
}

func TestLogger_WritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobfeed.log")
	cfg := DefaultConfig()
	cfg.File = path
	cfg.Compress = false

	var console bytes.Buffer
	logger, err := newLogger(cfg, &console)
	require.NoError(t, err)

	logger.With("component", "test").Info("discover served", "items", 3)
	require.NoError(t, logger.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	require.True(t, scanner.Scan())
	var entry map[string]any
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "discover served", entry["message"])
	assert.Equal(t, "test", entry["component"])
	assert.EqualValues(t, 3, entry["items"])
	assert.Contains(t, entry, "timestamp")
}
