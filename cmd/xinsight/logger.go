package main

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"xinsight/internal/config"
)

// newLogger builds the root logger. Unknown levels fall back to info.
func newLogger(cfg config.LogConfig, w io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if cfg.Format != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}
