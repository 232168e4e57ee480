// Package logging configures the global zerolog logger shared by the commands.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls logger output
type Options struct {
	Development bool
	Level       string

	// File enables a rotating log file in addition to stdout
	File           string
	FileMaxSizeMB  int
	FileMaxBackups int
	FileMaxAgeDays int
}

// Setup configures the global zerolog logger and returns a closer for the log file, if any.
func Setup(opts Options) io.Closer {
	var console io.Writer = os.Stdout
	// Pretty console logging in development
	if opts.Development {
		console = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
	}

	var closer io.Closer = nopCloser{}
	out := console
	if opts.File != "" {
		rotating := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.FileMaxSizeMB,
			MaxBackups: opts.FileMaxBackups,
			MaxAge:     opts.FileMaxAgeDays,
			Compress:   true,
		}
		out = zerolog.MultiLevelWriter(console, rotating)
		closer = rotating
	}

	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	zerolog.SetGlobalLevel(ParseLevel(opts.Level))

	log.Info().
		Str("level", zerolog.GlobalLevel().String()).
		Str("file", opts.File).
		Msg("Logger initialized")

	return closer
}

// ParseLevel parses a level name, falling back to info
func ParseLevel(lvl string) zerolog.Level {
	if lvl == "" {
		return zerolog.InfoLevel
	}
	parsed, err := zerolog.ParseLevel(lvl)
	if err != nil {
		return zerolog.InfoLevel
	}
	return parsed
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
