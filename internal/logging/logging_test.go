package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("WARN"))
	assert.Equal(t, zerolog.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("verbose"))
}

func TestWithRunAddsField(t *testing.T) {
	var buf bytes.Buffer
	id := NewRunID()
	_, err := uuid.Parse(id)
	require.NoError(t, err)

	logger := WithSymbol(WithRun(zerolog.New(&buf), id), "SPY")
	logger.Info().Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, id, entry["run_id"])
	assert.Equal(t, "SPY", entry["symbol"])
	assert.Equal(t, "hello", entry["message"])
}

func TestNewWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "sentinel.log")
	cfg := DefaultConfig()
	cfg.Console = false
	cfg.FilePath = path

	logger := New(cfg)
	logger.Debug().Msg("hidden")
	logger.Info().Str("k", "v").Msg("visible")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"visible"`)
	assert.NotContains(t, string(data), "hidden")
}
