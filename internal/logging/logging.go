// SPDX-License-Identifier: MPL-2.0

// Package logging builds the process logger. Diagnostics always go to stderr
// so that stdout stays a clean inventory document.
package logging

import (
	"io"
	"log/slog"

	"github.com/charmbracelet/log"
)

// Prefix is prepended to every log line.
const Prefix = "inventory"

// New returns a logger writing to w. verbose enables debug output.
func New(w io.Writer, verbose bool) *log.Logger {
	level := log.WarnLevel
	if verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(w, log.Options{
		Prefix:          Prefix,
		Level:           level,
		ReportTimestamp: verbose,
	})
}

// Install makes l the default logger of both charmbracelet/log and log/slog,
// so packages that log through slog share its level and output.
func Install(l *log.Logger) {
	log.SetDefault(l)
	slog.SetDefault(slog.New(l))
}
