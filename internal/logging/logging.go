// SPDX-License-Identifier: AGPL-3.0-only
package logging

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	// Debug level for verbose development output
	Debug LogLevel = iota
	// Info level for normal operational messages
	Info
	// Warn level for recoverable problems
	Warn
	// Error level for failures
	Error
	// Fatal level logs and then exits the process
	Fatal
)

// String returns the level name used in log output
func (l LogLevel) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	case Fatal:
		return "FATAL"
	default:
		return "INFO"
	}
}

// ParseLevel converts a level name to a LogLevel, defaulting to Info
func ParseLevel(level string) LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return Debug
	case "info":
		return Info
	case "warn":
		return Warn
	case "error":
		return Error
	case "fatal":
		return Fatal
	default:
		return Info
	}
}

// Options configures a Logger
type Options struct {
	// Output is where log lines are written (default os.Stdout)
	Output io.Writer
	// Level is the minimum level to emit
	Level LogLevel
}

// Logger is a minimal leveled logger with optional structured fields
type Logger struct {
	mu     sync.Mutex
	out    io.Writer
	level  LogLevel
	fields map[string]string
}

// New creates a new Logger with the given options
func New(opts Options) *Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	return &Logger{
		out:   out,
		level: opts.Level,
	}
}

// FileLogger creates a Logger that appends to the file at path
func FileLogger(path string, level LogLevel) (*Logger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return New(Options{Output: f, Level: level}), nil
}

var (
	defaultLogger   = New(Options{Level: Info})
	defaultLoggerMu sync.RWMutex
)

// SetDefaultLogger replaces the process-wide default logger
func SetDefaultLogger(l *Logger) {
	defaultLoggerMu.Lock()
	defer defaultLoggerMu.Unlock()
	defaultLogger = l
}

// GetDefaultLogger returns the process-wide default logger
func GetDefaultLogger() *Logger {
	defaultLoggerMu.RLock()
	defer defaultLoggerMu.RUnlock()
	return defaultLogger
}

// WithField returns a child logger that includes key=value on every line
func (l *Logger) WithField(key, value string) *Logger {
	child := &Logger{
		out:    l.out,
		level:  l.level,
		fields: make(map[string]string, len(l.fields)+1),
	}
	for k, v := range l.fields {
		child.fields[k] = v
	}
	child.fields[key] = value
	return child
}

func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	if level < l.level {
		return
	}

	msg := fmt.Sprintf(format, args...)
	line := fmt.Sprintf("%s [%s] %s%s\n",
		time.Now().Format(time.RFC3339), level, l.formatFields(), msg)

	l.mu.Lock()
	_, _ = io.WriteString(l.out, line)
	l.mu.Unlock()

	if level == Fatal {
		os.Exit(1)
	}
}

func (l *Logger) formatFields() string {
	if len(l.fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(l.fields))
	for k := range l.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%s ", k, l.fields[k])
	}
	return b.String()
}

// Debugf logs at debug level
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.log(Debug, format, args...)
}

// Infof logs at info level
func (l *Logger) Infof(format string, args ...interface{}) {
	l.log(Info, format, args...)
}

// Warnf logs at warn level
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.log(Warn, format, args...)
}

// Errorf logs at error level
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.log(Error, format, args...)
}

// Fatalf logs at fatal level and exits
func (l *Logger) Fatalf(format string, args ...interface{}) {
	l.log(Fatal, format, args...)
}
