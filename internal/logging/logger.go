// Package logging provides structured logging for the TIE bridge,
// wrapping log/slog with JSON/text handler selection and shared field
// helpers.
package logging

import (
	"log/slog"
	"os"
)

// Common field names for consistent logging across the daemon.
const (
	FieldComponent = "component"
	FieldSubject   = "subject"
	FieldEventID   = "event_id"
	FieldHash      = "hash"
	FieldError     = "error"
)

// Logger wraps slog.Logger.
type Logger struct {
	*slog.Logger
}

// New creates a Logger with the specified log level and format.
// format can be "json" or "text" (default is json).
func New(level slog.Level, format string) *Logger {
	opts := &slog.HandlerOptions{
		Level: level,
		// Add source location for errors and above
		AddSource: level <= slog.LevelError,
	}

	var handler slog.Handler
	switch format {
	case "text":
		handler = slog.NewTextHandler(os.Stdout, opts)
	default:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{Logger: slog.New(handler)}
}

// With returns a new logger with the given attributes added.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Component returns a slog attribute naming the emitting component.
func Component(name string) slog.Attr {
	return slog.String(FieldComponent, name)
}

// Subject returns a slog attribute for the fabric subject.
func Subject(subject string) slog.Attr {
	return slog.String(FieldSubject, subject)
}

// Hash returns a slog attribute for an artifact digest.
func Hash(digest string) slog.Attr {
	return slog.String(FieldHash, digest)
}

// Error returns a slog attribute for an error value.
func Error(err error) slog.Attr {
	return slog.String(FieldError, err.Error())
}

// ParseLevel converts a string log level to slog.Level.
// Valid values: "debug", "info", "warn", "error".
// Returns slog.LevelInfo for invalid values.
func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetDefault sets the default logger for the application.
func SetDefault(l *Logger) {
	slog.SetDefault(l.Logger)
}
