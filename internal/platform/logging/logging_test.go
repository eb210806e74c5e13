package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	require.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	require.Equal(t, slog.LevelError, ParseLevel(" error "))
	require.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestJSONLoggerCarriesServiceAndFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "warn", "json", "bazaar")

	logger.Info("dropped", "event", "ignored")
	require.Zero(t, buf.Len())

	logger.Warn("kept", "event", "listing_repo_warning")
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "bazaar", line["service"])
	require.Equal(t, "listing_repo_warning", line["event"])
}
