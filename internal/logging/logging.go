// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package logging builds the service's structured logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/samber/oops"
)

// Supported output formats.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// Options configures New.
type Options struct {
	Service string
	Version string
	// Format is FormatJSON or FormatText. Empty means JSON.
	Format string
	// Level is debug, info, warn or error. Empty means info.
	Level string
	// Writer defaults to os.Stderr.
	Writer io.Writer
}

// New creates a logger from opts.
func New(opts Options) (*slog.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{Level: level}

	var inner slog.Handler
	switch strings.ToLower(opts.Format) {
	case "", FormatJSON:
		inner = slog.NewJSONHandler(w, handlerOpts)
	case FormatText:
		inner = slog.NewTextHandler(w, handlerOpts)
	default:
		return nil, oops.Code("LOGGING_INVALID_FORMAT").
			With("format", opts.Format).
			Hint("use json or text").
			Errorf("unknown log format %q", opts.Format)
	}

	return slog.New(&traceHandler{inner: inner, service: opts.Service, version: opts.Version}), nil
}

// ParseLevel maps a level name onto a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	if name == "" {
		return slog.LevelInfo, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, oops.Code("LOGGING_INVALID_LEVEL").
			With("level", name).
			Hint("use debug, info, warn or error").
			Wrap(err)
	}
	return level, nil
}
