// Package chartrender draws report regions as interactive HTML charts and as PNG images.
package chartrender

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/myrjola/coachreports/internal/errors"
	"github.com/myrjola/coachreports/internal/report"
)

// ErrNothingToDraw is returned for regions without data.
var ErrNothingToDraw = errors.NewSentinel("nothing to draw")

// palette is cycled by series index so that the HTML and PNG renditions of a region share colours.
//
//nolint:gochecknoglobals // constant lookup table.
var palette = []string{
	"#5470c6", "#91cc75", "#fac858", "#ee6666", "#73c0de", "#3ba272", "#fc8452", "#9a60b4", "#ea7ccc",
}

func colorAt(i int) string {
	return palette[i%len(palette)]
}

// series is one named line of a dated region.
type series struct {
	name   string
	dates  []time.Time
	values []float64
}

// seriesOf extracts the lines of a dated region. Metric regions draw the metric total, the others one line per
// category. Points missing a category leave a gap in its line.
func seriesOf(region report.Region) ([]series, error) {
	keys := region.Categories.Names()
	names := keys
	if region.Metric != report.MetricNone {
		keys = []string{string(region.Metric)}
		names = []string{region.Metric.Label()}
	}
	out := make([]series, 0, len(keys))
	for i, key := range keys {
		s := series{name: names[i]}
		for _, p := range region.Points {
			v, ok := p.Value(key)
			if !ok {
				continue
			}
			d, err := time.Parse(report.DateLayout, p.Date)
			if err != nil {
				return nil, fmt.Errorf("parse point date %q: %w", p.Date, err)
			}
			s.dates = append(s.dates, d)
			s.values = append(s.values, v)
		}
		if len(s.values) > 0 {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil, errors.Wrap(ErrNothingToDraw, "extract series", regionAttr(region))
	}
	return out, nil
}

func regionAttr(region report.Region) slog.Attr {
	return slog.String("region", region.ID)
}

// axisDates lists the point dates of a region in order.
func axisDates(region report.Region) []string {
	out := make([]string, 0, len(region.Points))
	for _, p := range region.Points {
		out = append(out, p.Date)
	}
	return out
}
