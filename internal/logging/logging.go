package logging

import (
	"os"

	"github.com/rs/zerolog"
)

// New returns the process logger. Dev gets the console writer, everything
// else emits JSON lines.
func New(service, env string) zerolog.Logger {
	var logger zerolog.Logger
	if env == "dev" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	} else {
		logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
	return logger.With().Str("service", service).Logger()
}
