package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// SinkConfig selects where the logs go.
type SinkConfig struct {
	// File is the path of the rotated log file. Empty logs to stdout.
	File string
	// MaxSizeMB is the size at which the file is rotated.
	MaxSizeMB int
	// MaxBackups is the number of rotated files to keep.
	MaxBackups int
	// Level is one of debug, info, warn or error.
	Level string
	// JSON switches from the text format to JSON.
	JSON bool
}

// NewSink returns the writer described by cfg. With a file configured, logs go to stdout and to the file, which is
// rotated with lumberjack. The returned writer then also implements io.Closer.
func NewSink(cfg SinkConfig) io.Writer {
	if cfg.File == "" {
		return os.Stdout
	}
	file := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		Compress:   true,
	}
	return fileSink{Writer: io.MultiWriter(os.Stdout, file), file: file}
}

type fileSink struct {
	io.Writer
	file *lumberjack.Logger
}

func (s fileSink) Close() error {
	return s.file.Close() //nolint:wrapcheck // passed through.
}

// NewLogger builds a context aware logger writing to w.
func NewLogger(w io.Writer, cfg SinkConfig) *slog.Logger {
	opts := &slog.HandlerOptions{
		AddSource:   false,
		Level:       ParseLevel(cfg.Level),
		ReplaceAttr: nil,
	}
	var h slog.Handler = slog.NewTextHandler(w, opts)
	if cfg.JSON {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(NewContextHandler(h))
}

// ParseLevel maps a level name to [slog.Level], defaulting to debug.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}
