// Package logging configures the process-wide structured logger.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var (
	// Logger is the global logger instance.
	Logger zerolog.Logger
)

func init() {
	Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

// SetOutput sets the output destination for the global logger.
func SetOutput(w io.Writer) {
	Logger = Logger.Output(w)
}

// SetLevel parses level and sets it as the minimum level for the global logger.
// An unrecognized level leaves the current level unchanged.
func SetLevel(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return
	}
	zerolog.SetGlobalLevel(lvl)
}

// EnableConsoleOutput switches the logger to a human-friendly console format.
func EnableConsoleOutput() {
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	Logger = Logger.Output(consoleWriter)
}

// Debug logs a message at debug level.
func Debug() *zerolog.Event {
	return Logger.Debug()
}

// Info logs a message at info level.
func Info() *zerolog.Event {
	return Logger.Info()
}

// Warn logs a message at warn level.
func Warn() *zerolog.Event {
	return Logger.Warn()
}

// Error logs a message at error level.
func Error() *zerolog.Event {
	return Logger.Error()
}

// Fatal logs a message at fatal level and then calls os.Exit(1).
func Fatal() *zerolog.Event {
	return Logger.Fatal()
}
