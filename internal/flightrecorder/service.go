// Package flightrecorder keeps the most recent execution trace in memory and writes it to disk when a request
// misses its deadline.
package flightrecorder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/trace"
	"sync/atomic"
	"time"

	"github.com/myrjola/coachreports/internal/errors"
)

const (
	defaultMinAge   = 2 * time.Minute
	defaultMaxBytes = 32 << 20
	defaultCooldown = 30 * time.Minute
)

// Recorder wraps a [trace.FlightRecorder]. Captures are rate limited so that a burst of slow requests writes a
// single trace.
type Recorder struct {
	logger      *slog.Logger
	recorder    *trace.FlightRecorder
	dir         string
	cooldown    time.Duration
	now         func() time.Time
	lastCapture atomic.Int64
}

// Config configures a [Recorder]. Zero values fall back to defaults.
type Config struct {
	Logger *slog.Logger
	// Dir receives the trace files. It is created when missing.
	Dir      string
	MinAge   time.Duration
	MaxBytes uint64
	// Cooldown is the minimum time between two captures.
	Cooldown time.Duration
	Now      func() time.Time
}

// New returns a stopped Recorder.
func New(cfg Config) (*Recorder, error) {
	if cfg.Dir == "" {
		return nil, errors.New("traces directory is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil { //nolint:mnd // owner and group.
		return nil, errors.Wrap(err, "create traces directory", slog.String("dir", cfg.Dir))
	}
	r := &Recorder{
		logger:   cfg.Logger,
		dir:      cfg.Dir,
		cooldown: cfg.Cooldown,
		now:      cfg.Now,
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	if r.cooldown == 0 {
		r.cooldown = defaultCooldown
	}
	if r.now == nil {
		r.now = time.Now
	}
	minAge, maxBytes := cfg.MinAge, cfg.MaxBytes
	if minAge == 0 {
		minAge = defaultMinAge
	}
	if maxBytes == 0 {
		maxBytes = defaultMaxBytes
	}
	r.recorder = trace.NewFlightRecorder(trace.FlightRecorderConfig{MinAge: minAge, MaxBytes: maxBytes})
	return r, nil
}

// Start begins recording. Only one flight recorder may run per process.
func (r *Recorder) Start(ctx context.Context) error {
	if err := r.recorder.Start(); err != nil {
		return fmt.Errorf("start flight recorder: %w", err)
	}
	r.logger.LogAttrs(ctx, slog.LevelInfo, "flight recorder started", slog.String("dir", r.dir),
		slog.Duration("cooldown", r.cooldown))
	return nil
}

// Stop ends recording.
func (r *Recorder) Stop(ctx context.Context) {
	r.recorder.Stop()
	r.logger.LogAttrs(ctx, slog.LevelInfo, "flight recorder stopped")
}

// Capture writes the buffered trace to <dir>/<reason>-<timestamp>.trace and returns the file path. It returns
// false during the cooldown after a previous capture and when writing fails.
func (r *Recorder) Capture(ctx context.Context, reason string) (string, bool) {
	now := r.now()
	last := r.lastCapture.Load()
	if last != 0 && now.Sub(time.Unix(0, last)) < r.cooldown {
		r.logger.LogAttrs(ctx, slog.LevelDebug, "skipping trace capture during cooldown",
			slog.String("reason", reason), slog.Time("last_capture", time.Unix(0, last)))
		return "", false
	}
	// A concurrent capture won the race.
	if !r.lastCapture.CompareAndSwap(last, now.UnixNano()) {
		return "", false
	}

	path := filepath.Join(r.dir, fmt.Sprintf("%s-%s.trace", reason, now.UTC().Format("20060102-150405")))
	written, err := r.writeTrace(path)
	if err != nil {
		r.logger.LogAttrs(ctx, slog.LevelError, "failed to capture trace", errors.SlogError(err))
		return "", false
	}
	r.logger.LogAttrs(ctx, slog.LevelWarn, "captured trace", slog.String("reason", reason),
		slog.String("file", path), slog.Int64("bytes", written))
	return path, true
}

func (r *Recorder) writeTrace(path string) (written int64, err error) {
	file, err := os.Create(path) //nolint:gosec // the directory is configured by the operator.
	if err != nil {
		return 0, errors.Wrap(err, "create trace file", slog.String("file", path))
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			err = errors.Join(err, errors.Wrap(closeErr, "close trace file", slog.String("file", path)))
		}
	}()
	if written, err = r.recorder.WriteTo(file); err != nil {
		return written, errors.Wrap(err, "write trace", slog.String("file", path))
	}
	return written, nil
}
