package log

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimpleFormatter(t *testing.T) {
	f := &SimpleFormatter{TimestampFormat: DefaultTimestampFormat}
	entry := &logrus.Entry{
		Time:    time.Date(2026, 4, 6, 17, 30, 0, 0, time.UTC),
		Level:   logrus.WarnLevel,
		Message: "queue full",
		Data:    logrus.Fields{"topic": "joy", "dropped": 3},
	}

	out, err := f.Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "2026/04/06 17:30:00.000000 [WRN] queue full dropped=3 topic=joy\n", string(out))
}

func TestWriterLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger("info", &buf)

	l.Debugf("hidden %d", 1)
	l.Infof("shown %d", 2)
	l.WithField("component", "bridge").Errorf("failed")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "[INF] shown 2")
	assert.Contains(t, lines[1], "[ERR] failed component=bridge")
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger("loud", &buf)

	l.Debugf("hidden")
	l.Infof("visible")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "visible")
}

func TestLogFileCreated(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	l, err := newLogrusLogger("debug", dir, &bytes.Buffer{})
	require.NoError(t, err)
	l.Infof("to file")

	data, err := os.ReadFile(filepath.Join(dir, LogFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "[INF] to file")
}
