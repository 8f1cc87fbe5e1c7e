package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace/internal/models"
	"marketplace/internal/version"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input     string
		expected  slog.Level
		expectErr bool
	}{
		{input: "debug", expected: slog.LevelDebug},
		{input: "info", expected: slog.LevelInfo},
		{input: "warn", expected: slog.LevelWarn},
		{input: "error", expected: slog.LevelError},
		{input: "DEBUG", expected: slog.LevelDebug},
		{input: "Info", expected: slog.LevelInfo},
		{input: "verbose", expectErr: true},
		{input: "", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, err := parseLevel(tt.input)
			if tt.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestNew_JSONCarriesVersionFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "json", slog.LevelInfo, version.Info{Version: "1.2.3", GitCommit: "abc123", InstanceID: "node-1"})

	l.Info("search served", "total", 4)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "search served", entry["msg"])
	assert.Equal(t, "1.2.3", entry["version"])
	assert.Equal(t, "abc123", entry["git_commit"])
	assert.Equal(t, "node-1", entry["instance_id"])
	assert.EqualValues(t, 4, entry["total"])
	assert.NotContains(t, entry, "source")
}

func TestNew_TextFormatAndLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "text", slog.LevelWarn, version.Info{Version: "dev"})

	l.Info("dropped")
	l.Warn("kept")

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, "msg=kept")
	assert.Contains(t, out, "version=dev")
	assert.NotContains(t, out, "instance_id")
}

func TestNew_DebugAddsSource(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "json", slog.LevelDebug, version.Info{})
	l.Debug("details")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Contains(t, entry, "source")
}

func TestSetup_Outputs(t *testing.T) {
	for _, output := range []string{"stdout", "stderr"} {
		l, closer, err := Setup(models.LoggingConfig{Level: "info", Format: "json", Output: output}, version.Info{})
		require.NoError(t, err, output)
		assert.NotNil(t, l)
		assert.Nil(t, closer)
	}
}

func TestSetup_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marketplace.log")

	l, closer, err := Setup(models.LoggingConfig{Level: "info", Format: "json", Output: "file", FilePath: path}, version.Info{Version: "1.0.0"})
	require.NoError(t, err)
	require.NotNil(t, closer)

	l.Info("written to file")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestSetup_Errors(t *testing.T) {
	_, _, err := Setup(models.LoggingConfig{Level: "loud", Format: "json", Output: "stdout"}, version.Info{})
	assert.ErrorContains(t, err, "invalid log level")

	_, _, err = Setup(models.LoggingConfig{Level: "info", Format: "json", Output: "file"}, version.Info{})
	assert.ErrorContains(t, err, "file path is required")

	_, _, err = Setup(models.LoggingConfig{Level: "info", Format: "json", Output: "file", FilePath: filepath.Join(t.TempDir(), "missing", "x.log")}, version.Info{})
	assert.ErrorContains(t, err, "failed to open log output")
}

func TestContextLogger(t *testing.T) {
	assert.Same(t, slog.Default(), FromContext(context.Background()))

	var buf bytes.Buffer
	l := New(&buf, "json", slog.LevelInfo, version.Info{}).With("request_id", "req-1")
	ctx := WithContext(context.Background(), l)

	FromContext(ctx).Info("handled")
	assert.Contains(t, buf.String(), `"request_id":"req-1"`)
}
