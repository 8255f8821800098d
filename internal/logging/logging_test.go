package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"", zapcore.InfoLevel, false},
		{"debug", zapcore.DebugLevel, false},
		{"WARN", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"loud", zapcore.InfoLevel, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew_ProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Production: true, Level: "info", Console: &buf})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("session created", zap.String("session_id", "abc"))
	require.NoError(t, logger.Sync())

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1, "debug is below the configured level")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "session created", entry["message"])
	assert.Equal(t, "abc", entry["session_id"])
	assert.Contains(t, entry, "timestamp")
}

func TestNew_DevelopmentIsHumanReadable(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "debug", Console: &buf})
	require.NoError(t, err)

	logger.Debug("comparing sections")
	require.NoError(t, logger.Sync())

	assert.Contains(t, buf.String(), "comparing sections")
	assert.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}

func TestNew_FileOutput(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "cv.log")
	logger, err := New(Options{Level: "info", File: path, Console: &buf})
	require.NoError(t, err)

	logger.Warn("save failed")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, json.Valid(bytes.TrimSpace(data)), "file output is always JSON")
	assert.Contains(t, string(data), "save failed")
}

func TestNew_InvalidLevel(t *testing.T) {
	logger, err := New(Options{Level: "verbose"})
	assert.Error(t, err)
	assert.Nil(t, logger)
}
