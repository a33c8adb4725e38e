package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger defines the interface for logging throughout the application.
// Different implementations can be used for different contexts (console, silent, structured, etc.)
type Logger interface {
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
}

// ZerologLogger adapts a zerolog.Logger to the printf-style Logger interface.
type ZerologLogger struct {
	log zerolog.Logger
}

// New wraps an existing zerolog logger.
func New(log zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{log: log}
}

// NewConsoleLogger writes human-readable logs to stderr.
// Used for normal CLI operation and debugging.
func NewConsoleLogger(debug bool) *ZerologLogger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	return New(zerolog.New(out).Level(level).With().Timestamp().Logger())
}

// NewJSONLogger writes one JSON object per line to w. Used by long-running agents.
func NewJSONLogger(w io.Writer, debug bool) *ZerologLogger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return New(zerolog.New(w).Level(level).With().Timestamp().Logger())
}

func (z *ZerologLogger) Info(msg string, args ...interface{}) {
	z.log.Info().Msg(format(msg, args))
}

func (z *ZerologLogger) Warn(msg string, args ...interface{}) {
	z.log.Warn().Msg(format(msg, args))
}

func (z *ZerologLogger) Error(msg string, args ...interface{}) {
	z.log.Error().Msg(format(msg, args))
}

func (z *ZerologLogger) Debug(msg string, args ...interface{}) {
	z.log.Debug().Msg(format(msg, args))
}

// Zerolog exposes the underlying logger for callers that want structured fields.
func (z *ZerologLogger) Zerolog() zerolog.Logger {
	return z.log
}

func format(msg string, args []interface{}) string {
	if len(args) == 0 {
		return msg
	}
	return fmt.Sprintf(msg, args...)
}

// SilentLogger discards all log messages.
// Used when running in TUI or MCP stdio mode so log output does not interfere
// with the display or the protocol stream.
type SilentLogger struct{}

func NewSilentLogger() *SilentLogger {
	return &SilentLogger{}
}

func (s *SilentLogger) Info(msg string, args ...interface{})  {}
func (s *SilentLogger) Warn(msg string, args ...interface{})  {}
func (s *SilentLogger) Error(msg string, args ...interface{}) {}
func (s *SilentLogger) Debug(msg string, args ...interface{}) {}
