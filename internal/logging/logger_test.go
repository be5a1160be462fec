package logging_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/buo/internal/logging"
)

func Test_New_Writes_Console_Line_With_Attrs_When_Format_Console(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger, err := logging.New(logging.Options{Level: "info", Writer: &buf})
	require.NoError(t, err)

	logger.With("component", "inspect").WithGroup("cache").Info("cache full", "path", "/a b.mp3", "slots", 3)

	line := buf.String()
	assert.Contains(t, line, "INFO  cache full")
	assert.Contains(t, line, "component=inspect")
	assert.Contains(t, line, `cache.path="/a b.mp3"`)
	assert.Contains(t, line, "cache.slots=3")
	assert.NotContains(t, line, "\x1b[", "no color for non-terminal writers")
}

func Test_New_Drops_Records_Below_Level(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger, err := logging.New(logging.Options{Level: "warn", Writer: &buf})
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func Test_New_Writes_JSON_When_Format_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger, err := logging.New(logging.Options{Level: "info", Format: "json", Writer: &buf})
	require.NoError(t, err)

	logger.Info("loaded", "entries", 2)

	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &record))
	assert.Equal(t, "loaded", record["msg"])
	assert.Equal(t, 2.0, record["entries"])
}

func Test_New_Returns_Error_When_Options_Invalid(t *testing.T) {
	t.Parallel()

	_, err := logging.New(logging.Options{Level: "loud"})
	require.ErrorIs(t, err, logging.ErrInvalidLevel)

	_, err = logging.New(logging.Options{Format: "xml"})
	require.ErrorIs(t, err, logging.ErrInvalidFormat)
}

func Test_ParseLevel_Accepts_Known_Names(t *testing.T) {
	t.Parallel()

	for name, want := range map[string]slog.Level{
		"":      slog.LevelInfo,
		"DEBUG": slog.LevelDebug,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := logging.ParseLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
}
