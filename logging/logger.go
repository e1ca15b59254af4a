// Package logging provides the structured JSON logger the runtime adapter
// uses for its own diagnostics: agent stderr lines, spawn failures, turn
// errors, and control-timeout warnings.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Option configures Logger creation.
type Option func(*newOptions)

type newOptions struct {
	writer     io.Writer
	level      log.Level
	sessionKey string
	backendID  string
}

// WithWriter overrides the log destination. Defaults to os.Stderr.
func WithWriter(w io.Writer) Option {
	return func(o *newOptions) { o.writer = w }
}

// WithLevel overrides the minimum emitted level. Defaults to info.
func WithLevel(level string) Option {
	return func(o *newOptions) {
		if lvl, err := log.ParseLevel(level); err == nil {
			o.level = lvl
		}
	}
}

// WithSessionKey configures the session_key field on emitted records.
func WithSessionKey(key string) Option {
	return func(o *newOptions) { o.sessionKey = strings.TrimSpace(key) }
}

// WithBackendID configures the backend field on emitted records.
func WithBackendID(id string) Option {
	return func(o *newOptions) { o.backendID = strings.TrimSpace(id) }
}

// Logger wraps charmbracelet/log with JSON output and chainable field
// scoping (.With) along session key and backend id, the two dimensions the
// adapter's callers care about when grepping logs for one session.
type Logger struct {
	base       *log.Logger
	current    *log.Logger
	sessionKey string
	backendID  string
}

// New builds a Logger that writes newline-delimited JSON records.
func New(options ...Option) *Logger {
	resolved := newOptions{writer: os.Stderr, level: log.InfoLevel}
	for _, opt := range options {
		if opt != nil {
			opt(&resolved)
		}
	}

	base := log.NewWithOptions(resolved.writer, log.Options{
		Level:           resolved.level,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
	})
	base.SetFormatter(log.JSONFormatter)

	l := &Logger{base: base, sessionKey: resolved.sessionKey, backendID: resolved.backendID}
	l.rebuild()
	return l
}

// WithSessionKey returns a derived Logger scoped to session key k.
func (l *Logger) WithSessionKey(k string) *Logger {
	if l == nil {
		return nil
	}
	derived := &Logger{base: l.base, sessionKey: k, backendID: l.backendID}
	derived.rebuild()
	return derived
}

// WithBackendID returns a derived Logger scoped to backend id id.
func (l *Logger) WithBackendID(id string) *Logger {
	if l == nil {
		return nil
	}
	derived := &Logger{base: l.base, sessionKey: l.sessionKey, backendID: id}
	derived.rebuild()
	return derived
}

func (l *Logger) rebuild() {
	fields := make([]interface{}, 0, 4)
	if l.sessionKey != "" {
		fields = append(fields, "session_key", l.sessionKey)
	}
	if l.backendID != "" {
		fields = append(fields, "backend", l.backendID)
	}
	if len(fields) == 0 {
		l.current = l.base
		return
	}
	l.current = l.base.With(fields...)
}

// Debug logs at debug level. Nil-safe: a nil *Logger discards the record.
func (l *Logger) Debug(msg string, kv ...interface{}) {
	if l == nil {
		return
	}
	l.current.Debug(msg, kv...)
}

// Info logs at info level. Nil-safe.
func (l *Logger) Info(msg string, kv ...interface{}) {
	if l == nil {
		return
	}
	l.current.Info(msg, kv...)
}

// Warn logs at warn level. Nil-safe.
func (l *Logger) Warn(msg string, kv ...interface{}) {
	if l == nil {
		return
	}
	l.current.Warn(msg, kv...)
}

// Error logs at error level. Nil-safe.
func (l *Logger) Error(msg string, kv ...interface{}) {
	if l == nil {
		return
	}
	l.current.Error(msg, kv...)
}
