package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bytehawks/distillery/src/config"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"WARNING": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("TRACE")
	assert.Error(t, err)
}

func TestNewHandlerJSON(t *testing.T) {
	var buf bytes.Buffer
	h, err := NewHandler(&buf, "json", slog.LevelInfo)
	require.NoError(t, err)

	logger := slog.New(h)
	logger.Debug("hidden")
	logger.Info("probe", "target", "registry/primary/harbor")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "probe", entry["msg"])
	assert.Equal(t, "registry/primary/harbor", entry["target"])
}

func TestNewHandlerText(t *testing.T) {
	var buf bytes.Buffer
	h, err := NewHandler(&buf, "text", slog.LevelDebug)
	require.NoError(t, err)

	slog.New(h).Debug("attempt", "n", 2)
	assert.Contains(t, buf.String(), "msg=attempt")
	assert.Contains(t, buf.String(), "n=2")

	_, err = NewHandler(&buf, "xml", slog.LevelDebug)
	assert.Error(t, err)
}

func TestNewFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "distillery.log")
	logger, closer, err := New(config.LoggingConfig{Level: "WARNING", Format: "json", Output: "file", File: path}, true)
	require.NoError(t, err)

	logger.Debug("verbose overrides level")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "verbose overrides level")
}

func TestNewRejectsFileWithoutPath(t *testing.T) {
	_, _, err := New(config.LoggingConfig{Output: "file"}, false)
	assert.Error(t, err)
}

func TestFallback(t *testing.T) {
	var buf bytes.Buffer
	l := Fallback(&buf, false)
	l.Debug("hidden")
	l.Info("shown", "k", "v")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown k=v")

	buf.Reset()
	Fallback(&buf, true).Debug("detail")
	assert.Contains(t, buf.String(), "msg=detail")
}
