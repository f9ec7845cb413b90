// Package logging provides concrete implementations of the csv2hyper.Logger interface.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
)

// ConsoleLogger writes human-readable log lines to stderr through a zerolog console writer.
// Safe for concurrent use by multiple goroutines.
type ConsoleLogger struct {
	logger zerolog.Logger
}

// NewConsoleLogger creates a new ConsoleLogger on stderr.
// If verbose is true, Verbose() calls will produce output.
// If verbose is false, Verbose() calls are no-ops.
func NewConsoleLogger(verbose bool) *ConsoleLogger {
	return NewConsoleLoggerTo(os.Stderr, verbose)
}

// NewConsoleLoggerTo creates a ConsoleLogger writing to w. Colors are disabled.
func NewConsoleLoggerTo(w io.Writer, verbose bool) *ConsoleLogger {
	cw := zerolog.ConsoleWriter{
		Out:          zerolog.SyncWriter(w),
		NoColor:      true,
		PartsExclude: []string{zerolog.TimestampFieldName},
	}

	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	return &ConsoleLogger{
		logger: zerolog.New(cw).Level(level),
	}
}

// Zerolog exposes the underlying logger for callers that want structured fields.
func (l *ConsoleLogger) Zerolog() zerolog.Logger {
	return l.logger
}

// Verbose logs detailed diagnostic information if verbose mode is enabled.
func (l *ConsoleLogger) Verbose(format string, args ...interface{}) {
	event := l.logger.Debug()
	if !event.Enabled() {
		return
	}
	event.Msg(render(format, args))
}

// Info logs informational messages about normal operations.
func (l *ConsoleLogger) Info(format string, args ...interface{}) {
	l.logger.Info().Msg(render(format, args))
}

// Error logs error messages.
func (l *ConsoleLogger) Error(format string, args ...interface{}) {
	l.logger.Error().Msg(render(format, args))
}

func render(format string, args []interface{}) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
