package log

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/sirupsen/logrus"
)

// Ensure logrusLogger implements the Logger interface
var _ Logger = (*logrusLogger)(nil)

// LogFileName is the file created inside the configured log directory.
const LogFileName = "teleop_bridge.log"

// DefaultTimestampFormat includes microseconds so tick spacing is visible in the log.
const DefaultTimestampFormat = "2006/01/02 15:04:05.000000"

// logrusLogger wraps logrus to satisfy the Logger interface
type logrusLogger struct {
	entry *logrus.Entry
}

// NewLogrusLogger creates and configures a new logger instance using logrus.
// It logs to the console and, when logDir is set, also to logDir/teleop_bridge.log.
func NewLogrusLogger(logLevel string, logDir string) (Logger, error) {
	return newLogrusLogger(logLevel, logDir, os.Stdout)
}

// NewWriterLogger logs only to w. Used by tests and tools that capture output.
func NewWriterLogger(logLevel string, w io.Writer) Logger {
	l, _ := newLogrusLogger(logLevel, "", w)
	return l
}

// NewNopLogger discards everything.
func NewNopLogger() Logger {
	return NewWriterLogger("panic", io.Discard)
}

func newLogrusLogger(logLevel string, logDir string, console io.Writer) (Logger, error) {
	l := logrus.New()

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)
	l.SetFormatter(&SimpleFormatter{TimestampFormat: DefaultTimestampFormat})

	if logDir == "" {
		l.SetOutput(console)
		return &logrusLogger{entry: logrus.NewEntry(l)}, nil
	}

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory '%s': %w", logDir, err)
	}
	logFilePath := filepath.Join(logDir, LogFileName)
	logFile, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file '%s': %w", logFilePath, err)
	}
	l.SetOutput(io.MultiWriter(console, logFile))

	return &logrusLogger{entry: logrus.NewEntry(l)}, nil
}

func (l *logrusLogger) Debugf(format string, args ...interface{}) {
	l.entry.Debugf(format, args...)
}

func (l *logrusLogger) Infof(format string, args ...interface{}) {
	l.entry.Infof(format, args...)
}

func (l *logrusLogger) Warnf(format string, args ...interface{}) {
	l.entry.Warnf(format, args...)
}

func (l *logrusLogger) Errorf(format string, args ...interface{}) {
	l.entry.Errorf(format, args...)
}

func (l *logrusLogger) Fatalf(format string, args ...interface{}) {
	l.entry.Fatalf(format, args...)
}

func (l *logrusLogger) WithField(key string, value interface{}) Logger {
	return &logrusLogger{entry: l.entry.WithField(key, value)}
}

// levelTags maps logrus levels to the three-letter tags used in log lines.
var levelTags = map[logrus.Level]string{
	logrus.TraceLevel: "TRC",
	logrus.DebugLevel: "DBG",
	logrus.InfoLevel:  "INF",
	logrus.WarnLevel:  "WRN",
	logrus.ErrorLevel: "ERR",
	logrus.FatalLevel: "FTL",
	logrus.PanicLevel: "PNC",
}

// SimpleFormatter formats logs in a concise, standard-log-like way.
// Example: 2026/04/06 17:30:00.000000 [INF] command published topic=cmd_car
type SimpleFormatter struct {
	TimestampFormat string
}

// Format implements the logrus.Formatter interface
func (f *SimpleFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	b := entry.Buffer
	if b == nil {
		b = &bytes.Buffer{}
	}

	timestampFormat := f.TimestampFormat
	if timestampFormat == "" {
		timestampFormat = DefaultTimestampFormat
	}

	b.WriteString(entry.Time.Format(timestampFormat))
	tag, ok := levelTags[entry.Level]
	if !ok {
		tag = "???"
	}
	fmt.Fprintf(b, " [%s] %s", tag, entry.Message)

	if len(entry.Data) > 0 {
		keys := make([]string, 0, len(entry.Data))
		for k := range entry.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(b, " %s=%v", k, entry.Data[k])
		}
	}

	b.WriteByte('\n')
	return b.Bytes(), nil
}
