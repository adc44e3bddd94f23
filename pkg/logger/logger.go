package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	charm "github.com/charmbracelet/log"

	errUtils "github.com/cloudposse/runtime-init/errors"
)

// LogLevel is the configured verbosity as written in settings.logs.level.
type LogLevel string

const (
	LogLevelOff     LogLevel = "Off"
	LogLevelTrace   LogLevel = "Trace"
	LogLevelDebug   LogLevel = "Debug"
	LogLevelInfo    LogLevel = "Info"
	LogLevelWarning LogLevel = "Warning"
	LogLevelError   LogLevel = "Error"
)

// TraceLevel is one step more verbose than charm's debug level.
const TraceLevel = charm.DebugLevel - 1

// offLevel is above every level charm emits.
const offLevel = charm.FatalLevel + 1

// ParseLogLevel converts a configured level name into a LogLevel.
// An empty string defaults to Info.
func ParseLogLevel(logLevel string) (LogLevel, error) {
	if logLevel == "" {
		return LogLevelInfo, nil
	}

	for _, level := range []LogLevel{LogLevelOff, LogLevelTrace, LogLevelDebug, LogLevelInfo, LogLevelWarning, LogLevelError} {
		if strings.EqualFold(logLevel, string(level)) {
			return level, nil
		}
	}

	return "", fmt.Errorf("%w '%s'. Supported log levels are Trace, Debug, Info, Warning, Error, Off", errUtils.ErrInvalidLogLevel, logLevel)
}

// charmLevel maps a LogLevel onto the charm level.
func charmLevel(level LogLevel) charm.Level {
	switch level {
	case LogLevelOff:
		return offLevel
	case LogLevelTrace:
		return TraceLevel
	case LogLevelDebug:
		return charm.DebugLevel
	case LogLevelWarning:
		return charm.WarnLevel
	case LogLevelError:
		return charm.ErrorLevel
	default:
		return charm.InfoLevel
	}
}

// Logger wraps a charm logger and adds the trace level.
type Logger struct {
	*charm.Logger
}

// NewLogger wraps an existing charm logger.
func NewLogger(l *charm.Logger) *Logger {
	return &Logger{Logger: l}
}

// Trace logs at trace level.
func (l *Logger) Trace(msg interface{}, keyvals ...interface{}) {
	l.Log(TraceLevel, msg, keyvals...)
}

// SetLogLevel applies a configured LogLevel.
func (l *Logger) SetLogLevel(level LogLevel) {
	l.SetLevel(charmLevel(level))
}

// GetLevelString returns the current level name in lower case.
func (l *Logger) GetLevelString() string {
	if l.GetLevel() == TraceLevel {
		return "trace"
	}
	if l.GetLevel() >= offLevel {
		return "off"
	}
	return strings.ToLower(l.GetLevel().String())
}

// Configure builds a logger for the given level and destination and makes it the default.
// file may be empty or /dev/stderr (stderr), /dev/stdout, or a path that is appended to.
// The returned closer releases the log file, if any.
func Configure(level LogLevel, file string) (io.Closer, error) {
	out, closer, err := openOutput(file)
	if err != nil {
		return nil, err
	}

	l := New()
	l.SetOutput(out)
	l.SetLogLevel(level)
	l.SetStyles(styles())
	SetDefault(l)

	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func openOutput(file string) (io.Writer, io.Closer, error) {
	switch file {
	case "", "/dev/stderr":
		return os.Stderr, nopCloser{}, nil
	case "/dev/stdout":
		return os.Stdout, nopCloser{}, nil
	}

	f, err := os.OpenFile(file, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file %s: %w", file, err)
	}
	return f, f, nil
}
