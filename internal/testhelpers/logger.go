// Package testhelpers holds small utilities shared by the tests.
package testhelpers

import (
	"io"
	"log/slog"

	"github.com/myrjola/coachreports/internal/logging"
)

// NewLogger returns a debug level text logger writing to logSink, usually a [Writer].
func NewLogger(logSink io.Writer) *slog.Logger {
	return logging.NewLogger(logSink, logging.SinkConfig{Level: "debug"})
}
