package utils

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// NewLogger returns a zerolog.Logger writing JSON to stdout, tagged with the
// service name. Unknown levels fall back to info.
func NewLogger(serviceName, level string) zerolog.Logger {
	return newLogger(os.Stdout, serviceName, level)
}

func newLogger(w io.Writer, serviceName, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(lvl).With().
		Str("service", serviceName).
		Timestamp().
		Logger()
}
