package logger_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/androsik2006/radmon/internal/logger"
)

func TestModuleLoggerTextOutput(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	cl := logger.NewCentralLoggerWithWriter(&buf, logger.LogLevelDebug)
	log := cl.Module("monitor")

	log.Info("cycle completed",
		logger.Int("readings", 4),
		logger.Float64("value", 1.23456),
		logger.Duration("elapsed", 1500*time.Millisecond))

	out := buf.String()
	assert.Contains(t, out, "cycle completed")
	assert.Contains(t, out, "module=monitor")
	assert.Contains(t, out, "readings=4")
	assert.Contains(t, out, "value=1.235")
	assert.Contains(t, out, "elapsed=1.5s")
}

func TestLevelFiltering(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.NewCentralLoggerWithWriter(&buf, logger.LogLevelWarn).Module("alerting")

	log.Debug("hidden debug")
	log.Info("hidden info")
	log.Warn("visible warn")
	log.Error("visible error", logger.Error(errors.New("boom")))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible warn")
	assert.Contains(t, out, "error=boom")
}

func TestTraceLevelName(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.NewCentralLoggerWithWriter(&buf, logger.LogLevelTrace).Module("datastore")
	log.Trace("sql query")

	assert.Contains(t, buf.String(), "level=TRACE")
}

func TestWithAndSubModule(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := logger.NewCentralLoggerWithWriter(&buf, logger.LogLevelInfo).Module("notification")
	scoped := base.With(logger.String("sink", "smtp")).Module("shoutrrr")

	scoped.Info("delivered")
	base.Info("plain")

	lines := splitLines(buf.String())
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "module=notification.shoutrrr")
	assert.Contains(t, lines[0], "sink=smtp")
	assert.NotContains(t, lines[1], "sink=smtp")
}

func TestWithContextTraceID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.NewCentralLoggerWithWriter(&buf, logger.LogLevelInfo).Module("api")

	ctx := logger.WithTraceID(context.Background(), "abc-123")
	log.WithContext(ctx).Info("request")

	assert.Contains(t, buf.String(), "trace_id=abc-123")
}

func TestFileOutputJSON(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "radmon.log")
	cl, err := logger.NewCentralLogger(&logger.LoggingConfig{
		DefaultLevel: "info",
		Timezone:     "UTC",
		Console:      &logger.ConsoleOutput{Enabled: false},
		FileOutput:   &logger.FileOutput{Enabled: true, Path: path, MaxSize: 1},
	})
	require.NoError(t, err)

	cl.Module("conf").Info("settings loaded", logger.String("file", "config.yaml"))
	require.NoError(t, cl.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &entry))
	assert.Equal(t, "settings loaded", entry["msg"])
	assert.Equal(t, "conf", entry["module"])
	assert.Equal(t, "config.yaml", entry["file"])
}

func TestInvalidTimezone(t *testing.T) {
	t.Parallel()

	_, err := logger.NewCentralLogger(&logger.LoggingConfig{Timezone: "Mars/Olympus"})
	require.Error(t, err)
}

func TestGormAdapterQueryError(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.NewCentralLoggerWithWriter(&buf, logger.LogLevelInfo).Module("datastore")
	adapter := logger.NewGormLoggerAdapter(log, 100*time.Millisecond)

	adapter.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "SELECT 1", 0
	}, errors.New("no such table: measurements"))
	adapter.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "SELECT 2", 0
	}, gorm.ErrRecordNotFound)

	out := buf.String()
	assert.Contains(t, out, "query error")
	assert.Contains(t, out, "no such table")
	assert.NotContains(t, out, "SELECT 2", "record-not-found queries log at trace")
}

func splitLines(s string) []string {
	var lines []string
	sc := bufio.NewScanner(bytes.NewBufferString(s))
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines
}
