package report

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/myrjola/coachreports/internal/errors"
)

var (
	ErrRegionNotFound = errors.NewSentinel("chart region not found")
	ErrEmptyRegion    = errors.NewSentinel("chart region has no data")
	ErrInvalidDataURL = errors.NewSentinel("invalid data URL")
)

// Renderer rasterises a region into PNG bytes.
type Renderer interface {
	RenderPNG(ctx context.Context, region Region) ([]byte, error)
}

// DownloadSink stores an exported image under a file name.
type DownloadSink interface {
	Save(ctx context.Context, filename string, png []byte) error
}

// ImageUploader stores an image given as a data URL and returns the URL it is served from.
type ImageUploader interface {
	UploadChartImage(ctx context.Context, dataURL string) (string, error)
}

// ExportOutcome is reported to the metrics hook after every export attempt.
type ExportOutcome string

const (
	ExportSucceeded ExportOutcome = "success"
	ExportFailed    ExportOutcome = "failure"
)

// ExporterConfig wires an [Exporter]. Sink and Uploader are optional when the matching operation is not used.
type ExporterConfig struct {
	Regions  RegionSource
	Renderer Renderer
	Sink     DownloadSink
	Uploader ImageUploader
	Notifier Notifier
	Logger   *slog.Logger
	// Now defaults to [time.Now].
	Now func() time.Time
	// Observe is called with the outcome of every export.
	Observe func(ExportOutcome)
}

// Exporter turns chart regions into PNG files or uploaded images.
type Exporter struct {
	regions  RegionSource
	renderer Renderer
	sink     DownloadSink
	uploader ImageUploader
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
	observe  func(ExportOutcome)
}

// NewExporter returns an Exporter.
func NewExporter(cfg ExporterConfig) *Exporter {
	e := &Exporter{
		regions:  cfg.Regions,
		renderer: cfg.Renderer,
		sink:     cfg.Sink,
		uploader: cfg.Uploader,
		notifier: cfg.Notifier,
		logger:   cfg.Logger,
		now:      cfg.Now,
		observe:  cfg.Observe,
	}
	if e.logger == nil {
		e.logger = slog.New(slog.DiscardHandler)
	}
	if e.notifier == nil {
		e.notifier = LogNotifier{Logger: e.logger}
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.observe == nil {
		e.observe = func(ExportOutcome) {}
	}
	return e
}

// ExportFilename returns "<hint>-chart-<unix millis>.png".
func ExportFilename(hint string, at time.Time) string {
	return fmt.Sprintf("%s-chart-%d.png", hint, at.UnixMilli())
}

// ExportRegion renders region regionID and saves it to the download sink.
//
// It returns the file name and true on success. Failures are logged, reported to the notifier, and return false;
// nothing is written for them.
func (e *Exporter) ExportRegion(ctx context.Context, regionID, filenameHint string) (string, bool) {
	png, err := e.render(ctx, regionID)
	if err == nil && e.sink == nil {
		err = errors.New("no download sink configured")
	}
	filename := ExportFilename(filenameHint, e.now())
	if err == nil {
		if err = e.sink.Save(ctx, filename, png); err != nil {
			err = errors.Wrap(err, "save image", slog.String("filename", filename))
		}
	}
	if err != nil {
		e.fail(ctx, regionID, err, "Could not export the chart.")
		return "", false
	}
	e.observe(ExportSucceeded)
	e.logger.LogAttrs(ctx, slog.LevelInfo, "exported chart",
		slog.String("region", regionID), slog.String("filename", filename))
	return filename, true
}

// ShareRegion renders region regionID and uploads it, returning the public URL and true on success.
func (e *Exporter) ShareRegion(ctx context.Context, regionID string) (string, bool) {
	png, err := e.render(ctx, regionID)
	if err == nil && e.uploader == nil {
		err = errors.New("no image uploader configured")
	}
	var url string
	if err == nil {
		if url, err = e.uploader.UploadChartImage(ctx, PNGDataURL(png)); err != nil {
			err = errors.Wrap(err, "upload image")
		}
	}
	if err != nil {
		e.fail(ctx, regionID, err, "Could not share the chart.")
		return "", false
	}
	e.observe(ExportSucceeded)
	e.logger.LogAttrs(ctx, slog.LevelInfo, "shared chart", slog.String("region", regionID), slog.String("url", url))
	return url, true
}

func (e *Exporter) fail(ctx context.Context, regionID string, err error, msg string) {
	e.observe(ExportFailed)
	e.logger.LogAttrs(ctx, slog.LevelError, "chart export failed",
		slog.String("region", regionID), errors.SlogError(err))
	e.notifier.Notify(ctx, errorNotification(msg))
}

func (e *Exporter) render(ctx context.Context, regionID string) (png []byte, err error) {
	if e.regions == nil {
		return nil, errors.Wrap(ErrRegionNotFound, "lookup region", slog.String("region", regionID))
	}
	region, ok := e.regions.Region(regionID)
	if !ok {
		return nil, errors.Wrap(ErrRegionNotFound, "lookup region", slog.String("region", regionID))
	}
	if !region.HasData() {
		return nil, errors.Wrap(ErrEmptyRegion, "lookup region", slog.String("region", regionID),
			slog.String("decision", region.Decision.String()))
	}
	defer func() {
		if excp := recover(); excp != nil {
			err = errors.Wrap(errors.DecoratePanic(excp), "render region")
		}
	}()
	if png, err = e.renderer.RenderPNG(ctx, region); err != nil {
		return nil, errors.Wrap(err, "render region")
	}
	return png, nil
}

// PNGDataURL encodes png as a data URL.
func PNGDataURL(png []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}

// DecodeDataURL splits a base64 data URL into its media type and payload.
func DecodeDataURL(dataURL string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return "", nil, fmt.Errorf("%w: missing data: prefix", ErrInvalidDataURL)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("%w: missing payload", ErrInvalidDataURL)
	}
	mediaType, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return "", nil, fmt.Errorf("%w: only base64 payloads are supported", ErrInvalidDataURL)
	}
	if mediaType == "" {
		mediaType = "text/plain"
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrInvalidDataURL, err)
	}
	return mediaType, data, nil
}

// DirSink saves exports into a directory.
type DirSink struct {
	Dir string
}

func (d DirSink) Save(_ context.Context, filename string, png []byte) error {
	if err := os.MkdirAll(d.Dir, 0o750); err != nil { //nolint:mnd // owner and group.
		return fmt.Errorf("create export directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(d.Dir, filepath.Base(filename)), png, 0o600); err != nil { //nolint:mnd // owner.
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}
