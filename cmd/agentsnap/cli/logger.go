// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"
)

// NewCommandLogger creates a structured logger on stderr for CLI
// command operations. format is "text", "json", or "auto"; auto uses
// slog.TextHandler when stderr is a terminal and slog.JSONHandler when
// it is piped or redirected.
//
// Callers scope the logger with command-specific context via With():
//
//	logger := cli.NewCommandLogger(slog.LevelInfo, "auto").With(
//	    "command", "put",
//	    "root", root,
//	)
func NewCommandLogger(level slog.Level, format string) *slog.Logger {
	return newLogger(os.Stderr, level, format, term.IsTerminal(int(os.Stderr.Fd())))
}

func newLogger(w io.Writer, level slog.Level, format string, terminal bool) *slog.Logger {
	options := &slog.HandlerOptions{Level: level}
	switch {
	case format == "text", format != "json" && terminal:
		return slog.New(slog.NewTextHandler(w, options))
	default:
		return slog.New(slog.NewJSONHandler(w, options))
	}
}
