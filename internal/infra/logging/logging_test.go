package logging_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/snps-steve/bd-selfscan-sub001/internal/infra/logging"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		give string
		want slog.Level
	}{
		{give: "debug", want: slog.LevelDebug},
		{give: "DEBUG", want: slog.LevelDebug},
		{give: "warn", want: slog.LevelWarn},
		{give: "warning", want: slog.LevelWarn},
		{give: "error", want: slog.LevelError},
		{give: "info", want: slog.LevelInfo},
		{give: "", want: slog.LevelInfo},
		{give: "verbose", want: slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.give, func(t *testing.T) {
			t.Parallel()

			require.Equal(t, tt.want, logging.ParseLevel(tt.give))
		})
	}
}

func TestNewWithWriter(t *testing.T) {
	t.Parallel()

	t.Run("json by default", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer

		logger := logging.NewWithWriter(&buf, "", "info")
		logger.Info("job created", "application", "billing")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		require.Equal(t, "job created", entry["msg"])
		require.Equal(t, "billing", entry["application"])
	})

	t.Run("text format", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer

		logger := logging.NewWithWriter(&buf, "text", "info")
		logger.Info("job created")

		require.True(t, strings.Contains(buf.String(), "msg=\"job created\""))
	})

	t.Run("level filters lower records", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer

		logger := logging.NewWithWriter(&buf, "json", "warn")
		logger.Info("dropped")
		require.Zero(t, buf.Len())

		logger.Warn("kept")
		require.NotZero(t, buf.Len())
	})
}
