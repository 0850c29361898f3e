// Package logging builds the process-wide zerolog.Logger, replacing the
// teacher's log.Printf calls with structured logging throughout the rest
// of this module.
package logging

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New builds a console-writer logger at the given level (case-insensitive
// "debug", "info", "warn", "error"; unknown values fall back to "info"),
// tagged with the deployment environment label.
func New(level, environment string) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	parsed, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		parsed = zerolog.InfoLevel
	}

	writer := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	return zerolog.New(writer).
		Level(parsed).
		With().
		Timestamp().
		Str("environment", environment).
		Logger()
}
