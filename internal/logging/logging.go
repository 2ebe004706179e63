// SPDX-License-Identifier: MPL-2.0

// Package logging builds the process-wide slog logger backed by a
// charmbracelet/log handler.
package logging

import (
	"io"
	"log/slog"

	"github.com/charmbracelet/log"
)

// Prefix is printed in front of every log line.
const Prefix = "avocadoctl"

// Options configures New.
type Options struct {
	// Verbose lowers the level to debug.
	Verbose bool
	// Timestamps adds a time column to each line.
	Timestamps bool
}

// New returns a slog.Logger writing styled lines to w.
func New(w io.Writer, opts Options) *slog.Logger {
	level := log.InfoLevel
	if opts.Verbose {
		level = log.DebugLevel
	}
	handler := log.NewWithOptions(w, log.Options{
		Prefix:          Prefix,
		Level:           level,
		ReportTimestamp: opts.Timestamps,
	})
	return slog.New(handler)
}

// Install makes a logger built by New the slog default and returns it.
func Install(w io.Writer, opts Options) *slog.Logger {
	logger := New(w, opts)
	slog.SetDefault(logger)
	return logger
}

// OrDefault returns l, or slog.Default() when l is nil.
func OrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
