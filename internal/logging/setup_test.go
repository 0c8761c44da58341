package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_TextRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, Options{Level: "warn"})

	logger.Info("hidden")
	logger.Warn("shown", Tool("create_event"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "tool=create_event")
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, Options{Level: "debug", JSON: true})

	logger.Debug("dispatch", Calendar("primary"), EventID("evt1"))

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "dispatch", record["msg"])
	assert.Equal(t, "primary", record[KeyCalendar])
	assert.Equal(t, "evt1", record[KeyEventID])
}

func TestNewLogger_NilWriter(t *testing.T) {
	logger := NewLogger(nil, Options{})
	require.NotNil(t, logger)
	logger.Info("nothing happens")
}

func TestSetup_ReplacesDefault(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	var buf bytes.Buffer
	logger := Setup(&buf, Options{Level: "info"})
	assert.Same(t, logger, slog.Default())

	slog.Info("via default")
	assert.Contains(t, buf.String(), "via default")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}
