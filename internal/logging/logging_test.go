package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"loud":    slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestNewJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(&buf, "warn", "json")
	logger.Info("hidden")
	logger.Warn("shown", "file", "a.kml")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "a.kml", entry["file"])
}

func TestNewText(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	New(&buf, "debug", "text").Debug("parsed", "records", 3)
	assert.Contains(t, buf.String(), "msg=parsed")
	assert.Contains(t, buf.String(), "records=3")
}

func TestContext(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(&buf, "info", "text")
	ctx := WithLogger(context.Background(), logger)
	assert.Same(t, logger, FromContext(ctx))

	// Without a logger, records are dropped rather than panicking.
	assert.NotPanics(t, func() { FromContext(context.Background()).Error("nothing") })
}
