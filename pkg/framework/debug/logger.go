// Package debug provides the structured logger, buffer analysis and the
// realtime load meter shared by the host and the plugin framework.
package debug

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/agilira/go-timecache"
)

// LogLevel represents the severity of a log message.
type LogLevel int32

const (
	// LogLevelDebug is for detailed debugging information.
	LogLevelDebug LogLevel = iota
	// LogLevelInfo is for general informational messages.
	LogLevelInfo
	// LogLevelWarn is for warning messages.
	LogLevelWarn
	// LogLevelError is for error messages.
	LogLevelError
	// LogLevelOff disables all logging.
	LogLevelOff
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	case LogLevelOff:
		return "OFF"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a level name as used in configuration files.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LogLevelDebug, nil
	case "info", "":
		return LogLevelInfo, nil
	case "warn", "warning":
		return LogLevelWarn, nil
	case "error":
		return LogLevelError, nil
	case "off", "none":
		return LogLevelOff, nil
	}
	return LogLevelInfo, fmt.Errorf("unknown log level %q", s)
}

// Flags for logger output formatting.
const (
	FlagTime   = 1 << iota // Include timestamp
	FlagLevel              // Include log level
	FlagPrefix             // Include prefix
)

// DefaultFlags are the default formatting flags.
const DefaultFlags = FlagTime | FlagLevel | FlagPrefix

// sink is the state shared by a logger and every logger derived with With.
type sink struct {
	mu     sync.Mutex
	output io.Writer
	flags  int
	level  atomic.Int32
}

// Logger writes leveled messages with key-value context:
//
//	2026-01-02 15:04:05.000 [INFO] [host] plugin loaded path=/x.vst3 params=2
type Logger struct {
	sink   *sink
	prefix string
	fields []any
}

// New creates a new logger at LogLevelInfo.
func New(output io.Writer, prefix string, flags int) *Logger {
	s := &sink{output: output, flags: flags}
	s.level.Store(int32(LogLevelInfo))
	return &Logger{sink: s, prefix: prefix}
}

// Discard returns a logger that writes nothing.
func Discard() *Logger {
	l := New(io.Discard, "", 0)
	l.SetLevel(LogLevelOff)
	return l
}

var defaultLogger atomic.Pointer[Logger]

func init() {
	defaultLogger.Store(New(os.Stderr, "", DefaultFlags))
}

// Default returns the process-wide logger used when none is configured.
func Default() *Logger {
	return defaultLogger.Load()
}

// SetDefault replaces the process-wide logger.
func SetDefault(l *Logger) {
	if l != nil {
		defaultLogger.Store(l)
	}
}

// SetOutput sets the output destination for the logger and its children.
func (l *Logger) SetOutput(w io.Writer) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.output = w
}

// SetLevel sets the minimum log level for the logger and its children.
func (l *Logger) SetLevel(level LogLevel) {
	l.sink.level.Store(int32(level))
}

// Level returns the minimum log level.
func (l *Logger) Level() LogLevel {
	return LogLevel(l.sink.level.Load())
}

// Enabled reports whether messages at level are written.
func (l *Logger) Enabled(level LogLevel) bool {
	return level >= l.Level() && l.Level() != LogLevelOff
}

// With returns a logger that adds the given key-value pairs to every message.
func (l *Logger) With(kv ...any) *Logger {
	child := &Logger{sink: l.sink, prefix: l.prefix}
	child.fields = make([]any, 0, len(l.fields)+len(kv))
	child.fields = append(child.fields, l.fields...)
	child.fields = append(child.fields, kv...)
	return child
}

// Named returns a logger with a different prefix and the same fields.
func (l *Logger) Named(prefix string) *Logger {
	return &Logger{sink: l.sink, prefix: prefix, fields: l.fields}
}

func (l *Logger) log(level LogLevel, msg string, kv []any) {
	if !l.Enabled(level) {
		return
	}

	var sb strings.Builder
	flags := l.sink.flags
	if flags&FlagTime != 0 {
		sb.WriteString(timecache.CachedTime().Format("2006-01-02 15:04:05.000 "))
	}
	if flags&FlagLevel != 0 {
		sb.WriteString("[")
		sb.WriteString(level.String())
		sb.WriteString("] ")
	}
	if flags&FlagPrefix != 0 && l.prefix != "" {
		sb.WriteString("[")
		sb.WriteString(l.prefix)
		sb.WriteString("] ")
	}
	sb.WriteString(strings.TrimSuffix(msg, "\n"))
	writeFields(&sb, l.fields)
	writeFields(&sb, kv)
	sb.WriteByte('\n')

	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	_, _ = io.WriteString(l.sink.output, sb.String())
}

func writeFields(sb *strings.Builder, kv []any) {
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = "!BADKEY"
		}
		sb.WriteByte(' ')
		sb.WriteString(key)
		sb.WriteByte('=')
		if i+1 >= len(kv) {
			sb.WriteString("!MISSING")
			break
		}
		sb.WriteString(formatValue(kv[i+1]))
	}
}

func formatValue(v any) string {
	var s string
	switch x := v.(type) {
	case string:
		s = x
	case error:
		s = x.Error()
	case fmt.Stringer:
		s = x.String()
	default:
		s = fmt.Sprint(x)
	}
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return strconv.Quote(s)
	}
	return s
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, kv ...any) {
	l.log(LogLevelDebug, msg, kv)
}

// Info logs an informational message.
func (l *Logger) Info(msg string, kv ...any) {
	l.log(LogLevelInfo, msg, kv)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, kv ...any) {
	l.log(LogLevelWarn, msg, kv)
}

// Error logs an error message.
func (l *Logger) Error(msg string, kv ...any) {
	l.log(LogLevelError, msg, kv)
}
