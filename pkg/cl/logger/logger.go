package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// LogLevel is the minimum severity a Logger emits.
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// Logger is the logging surface shared by every package. Messages are
// formatted fmt-style; structured fields are attached with With.
type Logger interface {
	Debug(v ...any)
	Debugf(format string, a ...any)
	Info(v ...any)
	Infof(format string, a ...any)
	Warn(v ...any)
	Warnf(format string, a ...any)
	Error(v ...any)
	Errorf(format string, a ...any)
	With(args ...any) Logger
}

// NewLogger returns a slog-backed Logger writing to w.
// Level accepts debug, info, warn or error and their short forms, case
// insensitive, and falls back to info. Format "json" selects JSON lines,
// anything else slog's text output.
func NewLogger(level, format string, w io.Writer) Logger {
	opts := &slog.HandlerOptions{Level: slogLevel(parseLevel(level))}

	var h slog.Handler = slog.NewTextHandler(w, opts)
	if strings.EqualFold(format, "json") {
		h = slog.NewJSONHandler(w, opts)
	}
	return slogLogger{l: slog.New(h)}
}

type slogLogger struct {
	l *slog.Logger
}

// emit builds the message only when the level is enabled.
func (s slogLogger) emit(level slog.Level, msg func() string) {
	ctx := context.Background()
	if s.l.Enabled(ctx, level) {
		s.l.Log(ctx, level, msg())
	}
}

func (s slogLogger) Debug(v ...any) { s.emit(slog.LevelDebug, func() string { return fmt.Sprint(v...) }) }
func (s slogLogger) Info(v ...any)  { s.emit(slog.LevelInfo, func() string { return fmt.Sprint(v...) }) }
func (s slogLogger) Warn(v ...any)  { s.emit(slog.LevelWarn, func() string { return fmt.Sprint(v...) }) }
func (s slogLogger) Error(v ...any) { s.emit(slog.LevelError, func() string { return fmt.Sprint(v...) }) }

func (s slogLogger) Debugf(format string, a ...any) {
	s.emit(slog.LevelDebug, func() string { return fmt.Sprintf(format, a...) })
}

func (s slogLogger) Infof(format string, a ...any) {
	s.emit(slog.LevelInfo, func() string { return fmt.Sprintf(format, a...) })
}

func (s slogLogger) Warnf(format string, a ...any) {
	s.emit(slog.LevelWarn, func() string { return fmt.Sprintf(format, a...) })
}

func (s slogLogger) Errorf(format string, a ...any) {
	s.emit(slog.LevelError, func() string { return fmt.Sprintf(format, a...) })
}

func (s slogLogger) With(args ...any) Logger {
	return slogLogger{l: s.l.With(args...)}
}

// NewNoopLogger returns a Logger that discards everything.
func NewNoopLogger() Logger {
	return noopLogger{}
}

type noopLogger struct{}

func (noopLogger) Debug(...any)          {}
func (noopLogger) Debugf(string, ...any) {}
func (noopLogger) Info(...any)           {}
func (noopLogger) Infof(string, ...any)  {}
func (noopLogger) Warn(...any)           {}
func (noopLogger) Warnf(string, ...any)  {}
func (noopLogger) Error(...any)          {}
func (noopLogger) Errorf(string, ...any) {}
func (noopLogger) With(...any) Logger    { return noopLogger{} }

func parseLevel(level string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug", "dbg":
		return DebugLevel
	case "warn", "wrn", "warning":
		return WarnLevel
	case "error", "err":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

func slogLevel(level LogLevel) slog.Level {
	switch level {
	case DebugLevel:
		return slog.LevelDebug
	case WarnLevel:
		return slog.LevelWarn
	case ErrorLevel:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
