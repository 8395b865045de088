package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogrusLogger_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogrusLogger(Options{Level: "debug", Format: "json", Output: &buf})

	log.WithField("tool", "list_files").Info(context.Background(), "tool call finished", map[string]interface{}{
		"duration_ms": 12,
	})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "tool call finished", entry["msg"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "list_files", entry["tool"])
	assert.EqualValues(t, 12, entry["duration_ms"])
}

func TestLogrusLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogrusLogger(Options{Level: "warn", Output: &buf})

	log.Info(context.Background(), "hidden", nil)
	assert.Empty(t, buf.String())

	log.Warn(context.Background(), "shown", nil)
	assert.Contains(t, buf.String(), "shown")
}

func TestLogrusLogger_UnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogrusLogger(Options{Level: "loud", Output: &buf})

	log.Debug(context.Background(), "debug line", nil)
	assert.Empty(t, buf.String())

	log.Info(context.Background(), "info line", nil)
	assert.Contains(t, buf.String(), "info line")
}

func TestTestLogger_DerivedLoggersShareEntries(t *testing.T) {
	root := NewTestLogger()
	child := root.WithField("run_id", "abc").WithFields(map[string]interface{}{"step": 3})

	child.Error(context.Background(), "step failed", map[string]interface{}{"error": "boom"})
	root.Info(context.Background(), "run finished", nil)

	entries := root.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "error", entries[0].Level)
	assert.Equal(t, "abc", entries[0].Fields["run_id"])
	assert.Equal(t, 3, entries[0].Fields["step"])
	assert.Equal(t, "boom", entries[0].Fields["error"])

	_, ok := root.Find("info", "run finished")
	assert.True(t, ok)

	root.Reset()
	assert.Empty(t, child.(*TestLogger).Entries())
}
