// Package logging builds the process-wide zerolog logger. JSON to stdout in
// prod, human-readable console output in dev.
package logging

import (
	"os"

	"github.com/rs/zerolog"
)

func New(env, service string) zerolog.Logger {
	var logger zerolog.Logger
	if env == "dev" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	} else {
		logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
	return logger.With().Str("service", service).Logger()
}
