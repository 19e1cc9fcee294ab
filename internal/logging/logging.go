// Package logging configures the process-wide zerolog logger.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options controls logger output.
type Options struct {
	Verbose bool   // Debug level instead of Info
	JSON    bool   // Structured JSON lines instead of console formatting
	File    string // Optional path receiving a plain-text copy of every line
}

// Setup installs the global logger. The returned closer releases the log
// file, if any, and is always safe to call.
func Setup(opts Options) (io.Closer, error) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level := zerolog.InfoLevel
	if opts.Verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	var console io.Writer = zerolog.ConsoleWriter{Out: os.Stderr}
	if opts.JSON {
		console = os.Stderr
	}

	if opts.File == "" {
		log.Logger = zerolog.New(console).With().Timestamp().Logger()
		return nopCloser{}, nil
	}

	logFile, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nopCloser{}, fmt.Errorf("failed to open log file: %w", err)
	}
	fileWriter := zerolog.ConsoleWriter{Out: logFile, NoColor: true}
	log.Logger = zerolog.New(io.MultiWriter(console, fileWriter)).With().Timestamp().Logger()

	log.Debug().Str("logFile", opts.File).Msg("logging to file")
	return logFile, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
