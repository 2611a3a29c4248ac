// Package logging provides the structured, leveled logger used by the
// watcher and launcher. It is a deliberately small adaptation of the
// package-scoped zerolog pattern used elsewhere in the wider codebase
// (one *zerolog.Logger per concern), simplified here to a single logger
// per process since the watcher and launcher are each one-shot processes,
// not a multi-package server registering loggers by name.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// New builds a zerolog.Logger tagged with pid and component, writing JSON
// lines to dest. If dest is nil, logging is a no-op (matching the
// supervisor's "silent if no --log-file was given" behavior).
func New(component string, dest io.Writer) zerolog.Logger {
	if dest == nil {
		return zerolog.Nop()
	}
	return zerolog.New(dest).With().
		Timestamp().
		Str("component", component).
		Int("pid", os.Getpid()).
		Logger()
}

// OpenLogFile opens path for append, creating it if needed, for use as a
// logging destination. Returns nil, nil if path is empty.
func OpenLogFile(path string) (*os.File, error) {
	if path == "" {
		return nil, nil
	}
	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
}
