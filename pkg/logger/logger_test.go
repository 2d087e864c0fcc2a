package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_RenamesKeys(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	var buf bytes.Buffer
	Init(&buf, slog.LevelInfo)
	slog.Debug("hidden")
	slog.Info("audit started", "references", 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "audit started", entry["message"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Contains(t, entry, "timestamp")
	assert.EqualValues(t, 3, entry["references"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewZap_MatchesSlogKeys(t *testing.T) {
	var buf bytes.Buffer
	log := NewZap(&buf, slog.LevelWarn)
	log.Info("dropped")
	log.Warn("edit not applied")
	require.NoError(t, log.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "edit not applied", entry["message"])
	assert.Equal(t, "WARN", entry["level"])
	assert.Contains(t, entry, "timestamp")
}
