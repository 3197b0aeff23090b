// Package jsonlog writes one JSON object per log entry.
//
// It keeps the small Info/Error/Fatal API the server code calls, with an
// optional map of string properties, and hands the encoding to zerolog.
package jsonlog

import (
	"io"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type Level int8

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarning
	LevelError
	LevelFatal
	LevelOff
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarning:
		return "WARNING"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return ""
	}
}

// ParseLevel maps a config value such as "info" or "warn" to a Level.
// Unknown values fall back to LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarning
	case "error":
		return LevelError
	case "fatal":
		return LevelFatal
	case "off":
		return LevelOff
	default:
		return LevelInfo
	}
}

func (l Level) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarning:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	case LevelFatal:
		return zerolog.FatalLevel
	case LevelOff:
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

type Logger struct {
	zl   zerolog.Logger
	exit func(int)
}

// New returns a Logger writing entries at or above minLevel to out.
func New(out io.Writer, minLevel Level) *Logger {
	zl := zerolog.New(out).
		Level(minLevel.zerolog()).
		With().
		Timestamp().
		Logger()

	return &Logger{zl: zl, exit: os.Exit}
}

func init() {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.MessageFieldName = "message"
}

func (l *Logger) Debug(message string, properties map[string]string) {
	l.print(l.zl.Debug(), message, properties)
}

func (l *Logger) Info(message string, properties map[string]string) {
	l.print(l.zl.Info(), message, properties)
}

func (l *Logger) Warning(message string, properties map[string]string) {
	l.print(l.zl.Warn(), message, properties)
}

// Error entries include a stack trace.
func (l *Logger) Error(err error, properties map[string]string) {
	l.print(l.zl.Error().Str("trace", string(debug.Stack())), err.Error(), properties)
}

func (l *Logger) Fatal(err error, properties map[string]string) {
	// WithLevel avoids zerolog's own os.Exit so the exit hook stays testable.
	l.print(l.zl.WithLevel(zerolog.FatalLevel).Str("trace", string(debug.Stack())), err.Error(), properties)
	l.exit(1)
}

func (l *Logger) print(e *zerolog.Event, message string, properties map[string]string) {
	if e == nil {
		return
	}

	if len(properties) > 0 {
		props := zerolog.Dict()
		for k, v := range properties {
			props.Str(k, v)
		}
		e = e.Dict("properties", props)
	}

	e.Msg(message)
}

// Write lets the Logger stand in as http.Server's ErrorLog; each write is an
// ERROR entry without properties.
func (l *Logger) Write(message []byte) (n int, err error) {
	l.zl.Error().Msg(strings.TrimSpace(string(message)))
	return len(message), nil
}
