package cli

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// logOutput receives human-readable progress logs. Tests swap it.
var logOutput io.Writer = os.Stderr

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	console := zerolog.ConsoleWriter{Out: logOutput, TimeFormat: time.Kitchen}
	return zerolog.New(console).Level(level).With().Timestamp().Logger()
}
