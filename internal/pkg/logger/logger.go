package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// New builds the application logger. Output is JSON, except in dev where a
// console writer keeps it readable.
func New(appEnv string) zerolog.Logger {
	return NewWithWriter(appEnv, os.Stderr)
}

func NewWithWriter(appEnv string, w io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	out := w
	level := zerolog.InfoLevel
	if appEnv == "dev" {
		out = zerolog.ConsoleWriter{Out: w}
		level = zerolog.DebugLevel
	}

	return zerolog.New(out).With().Timestamp().Str("app", "plandeck").Logger().Level(level)
}
