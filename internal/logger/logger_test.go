package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		input     string
		expect    slog.Level
		expectErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"", slog.LevelInfo, false},
		{"WARN", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, err := levelFromString(tt.input)
			if tt.expectErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "invalid log level")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expect, level)
		})
	}
}

func TestNewProdWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "info", Environment: "prod"}, &buf)
	require.NoError(t, err)

	l.Info("sweep finished", "tasks_created", 3)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "sweep finished", record["msg"])
	assert.EqualValues(t, 3, record["tasks_created"])
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestWriterWithFile(t *testing.T) {
	w := Writer(Config{File: filepath.Join(t.TempDir(), "planner.log")})
	_, err := w.Write([]byte("hello\n"))
	assert.NoError(t, err)
}

func TestOrDiscard(t *testing.T) {
	assert.NotNil(t, OrDiscard(nil))
}
