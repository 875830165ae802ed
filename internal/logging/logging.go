// Package logging configures the process-wide slog default for termtap.
// The core packages log through slog and never print; only the CLI renders
// to stdout.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls how the default logger is built.
type Options struct {
	Level   string // debug, info, warn, error (default info)
	File    string // when set, JSON logs go to this rotating file instead of stderr
	Verbose bool   // shorthand for Level=debug
}

// Setup installs the default slog logger. Console output uses tint with
// colors only when stderr is a terminal; file output is JSON through a
// rotating writer.
func Setup(opts Options) {
	level := parseLevel(opts.Level)
	if opts.Verbose {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	if opts.File != "" {
		var w io.Writer = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	} else {
		handler = tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
			NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
		})
	}

	slog.SetDefault(slog.New(handler))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
