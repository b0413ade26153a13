package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger provides structured logging for the service
type Logger struct {
	prefix string
	// base carries every field except component, so Named can replace it.
	base zerolog.Logger
	zl   zerolog.Logger
}

// Options controls logger construction
type Options struct {
	Level  string // debug, info, warn, error
	Format string // json or console
	Output io.Writer
}

// NewLogger creates a new logger with a prefix (the component name)
func NewLogger(prefix string) *Logger {
	return New(prefix, Options{})
}

// New creates a logger with explicit options
func New(prefix string, opts Options) *Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if opts.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	base := zerolog.New(out).
		Level(parseLevel(opts.Level)).
		With().
		Timestamp().
		Logger()

	return &Logger{prefix: prefix, base: base, zl: base.With().Str("component", prefix).Logger()}
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return &Logger{base: zerolog.Nop(), zl: zerolog.Nop()}
}

// Named returns a child logger for another component sharing the same sink
func (l *Logger) Named(prefix string) *Logger {
	return &Logger{prefix: prefix, base: l.base, zl: l.base.With().Str("component", prefix).Logger()}
}

// With returns a child logger carrying the given key/value pairs
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	base, zl := l.base.With(), l.zl.With()
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key := fmt.Sprint(keysAndValues[i])
		base = base.Interface(key, keysAndValues[i+1])
		zl = zl.Interface(key, keysAndValues[i+1])
	}
	return &Logger{prefix: l.prefix, base: base.Logger(), zl: zl.Logger()}
}

// Info logs an informational message with key-value pairs
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.logWithKV(l.zl.Info(), msg, keysAndValues...)
}

// Warn logs a warning message with key-value pairs
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.logWithKV(l.zl.Warn(), msg, keysAndValues...)
}

// Error logs an error message with key-value pairs
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.logWithKV(l.zl.Error(), msg, keysAndValues...)
}

// Debug logs a debug message with key-value pairs
func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.logWithKV(l.zl.Debug(), msg, keysAndValues...)
}

func (l *Logger) logWithKV(evt *zerolog.Event, msg string, keysAndValues ...interface{}) {
	if evt == nil {
		return
	}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key := fmt.Sprint(keysAndValues[i])
		switch v := keysAndValues[i+1].(type) {
		case error:
			evt = evt.AnErr(key, v)
		case string:
			evt = evt.Str(key, v)
		case int:
			evt = evt.Int(key, v)
		case int64:
			evt = evt.Int64(key, v)
		case float64:
			evt = evt.Float64(key, v)
		case bool:
			evt = evt.Bool(key, v)
		case time.Duration:
			evt = evt.Dur(key, v)
		default:
			evt = evt.Interface(key, v)
		}
	}
	evt.Msg(msg)
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// AsynqAdapter satisfies asynq.Logger so the queue server logs through the
// same sink as the rest of the service.
type AsynqAdapter struct {
	l *Logger
}

// ForAsynq wraps the logger for asynq.Config.Logger
func (l *Logger) ForAsynq() *AsynqAdapter {
	return &AsynqAdapter{l: l}
}

func (a *AsynqAdapter) Debug(args ...interface{}) { a.l.Debug(fmt.Sprint(args...)) }
func (a *AsynqAdapter) Info(args ...interface{})  { a.l.Info(fmt.Sprint(args...)) }
func (a *AsynqAdapter) Warn(args ...interface{})  { a.l.Warn(fmt.Sprint(args...)) }
func (a *AsynqAdapter) Error(args ...interface{}) { a.l.Error(fmt.Sprint(args...)) }

func (a *AsynqAdapter) Fatal(args ...interface{}) {
	a.l.zl.Fatal().Msg(fmt.Sprint(args...))
}
