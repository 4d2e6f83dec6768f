// Package logging builds the structured logger shared by the CLI, TUI and
// MCP server.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const service = "prscore"

// ParseLevel maps a level name to a zerolog level. Unknown names fall back to
// info.
func ParseLevel(levelStr string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "off", "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger returns a JSON logger writing to w. A nil writer means stderr so
// that stdout stays clean for reports.
func NewLogger(levelStr string, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	zerolog.TimeFieldFormat = time.RFC3339
	return zerolog.New(w).With().
		Timestamp().
		Str("service", service).
		Logger().
		Level(ParseLevel(levelStr))
}

// NewConsoleLogger is NewLogger with human readable output.
func NewConsoleLogger(levelStr string, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return NewLogger(levelStr, zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen})
}

// OpenLogFile opens path for appending, creating parent directories. The TUI
// logs here because it owns the terminal.
func OpenLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	// #nosec G304 -- Path comes from the workspace directory
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}
