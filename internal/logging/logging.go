package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// Setup configures the global logger. Outside production it pretty prints
// with timestamps; debug enables debug level.
func Setup(env string, debug bool) {
	SetupWriter(os.Stdout, env, debug)
}

// SetupWriter is Setup with an explicit destination
func SetupWriter(out io.Writer, env string, debug bool) {
	if env != "production" {
		output := zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}
		zlog.Logger = zerolog.New(output).With().Timestamp().Logger()
	} else {
		zlog.Logger = zerolog.New(out).With().Timestamp().Logger()
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}
