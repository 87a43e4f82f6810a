package chartrender

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"time"

	"github.com/myrjola/coachreports/internal/errors"
	"github.com/myrjola/coachreports/internal/report"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	defaultWidth  = 800
	defaultHeight = 450
)

// PNG rasterises regions with go-chart. The zero value renders 800x450 images.
type PNG struct {
	Width  int
	Height int
}

func (p PNG) size() (int, int) {
	w, h := p.Width, p.Height
	if w <= 0 {
		w = defaultWidth
	}
	if h <= 0 {
		h = defaultHeight
	}
	return w, h
}

// RenderPNG draws distribution regions as pie charts and dated regions as time series.
func (p PNG) RenderPNG(ctx context.Context, region report.Region) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("render png: %w", err)
	}
	if !region.HasData() {
		return nil, errors.Wrap(ErrNothingToDraw, "render png", regionAttr(region))
	}
	var (
		buf bytes.Buffer
		err error
	)
	if region.Chart.IsDistribution() {
		err = p.pie(region).Render(chart.PNG, &buf)
	} else {
		var c chart.Chart
		if c, err = p.timeSeries(region); err == nil {
			err = c.Render(chart.PNG, &buf)
		}
	}
	if err != nil {
		return nil, errors.Wrap(err, "render png", regionAttr(region))
	}
	return buf.Bytes(), nil
}

func (p PNG) pie(region report.Region) chart.PieChart {
	w, h := p.size()
	values := make([]chart.Value, 0, len(region.Entries))
	for i, e := range region.Entries {
		if e.Value <= 0 {
			continue
		}
		values = append(values, chart.Value{
			Label: e.Name,
			Value: e.Value,
			Style: chart.Style{FillColor: drawing.ColorFromHex(colorAt(i)[1:])},
		})
	}
	return chart.PieChart{
		Title:      region.Title(),
		Width:      w,
		Height:     h,
		Background: chart.Style{Padding: chart.Box{Top: 32, Left: 16, Right: 16, Bottom: 16}},
		Values:     values,
	}
}

func (p PNG) timeSeries(region report.Region) (chart.Chart, error) {
	lines, err := seriesOf(region)
	if err != nil {
		return chart.Chart{}, err
	}
	w, h := p.size()
	maxValue := 0.0
	rendered := make([]chart.Series, 0, len(lines))
	for i, l := range lines {
		xs, ys := l.dates, l.values
		// A single point has no x range to draw; a second point an hour later keeps it visible.
		if len(xs) == 1 {
			xs = []time.Time{xs[0], xs[0].Add(time.Hour)}
			ys = []float64{ys[0], ys[0]}
		}
		for _, v := range ys {
			maxValue = math.Max(maxValue, v)
		}
		color := drawing.ColorFromHex(colorAt(i)[1:])
		rendered = append(rendered, chart.TimeSeries{
			Name:    l.name,
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				StrokeColor: color,
				StrokeWidth: 2,
				DotColor:    color,
				DotWidth:    3,
			},
		})
	}
	if maxValue == 0 {
		maxValue = 1
	}
	c := chart.Chart{
		Title:      region.Title(),
		Width:      w,
		Height:     h,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      chart.XAxis{ValueFormatter: chart.TimeValueFormatterWithFormat(report.DateLayout)},
		YAxis: chart.YAxis{
			Name:  yAxisName(region),
			Range: &chart.ContinuousRange{Min: 0, Max: maxValue * 1.1}, //nolint:mnd // headroom above the peak.
		},
		Series: rendered,
	}
	c.Elements = []chart.Renderable{chart.Legend(&c)}
	return c, nil
}

func yAxisName(region report.Region) string {
	switch {
	case region.Metric != report.MetricNone:
		return region.Metric.Label()
	case region.Chart == report.ChartStrength:
		return "Weight (kg)"
	default:
		return "Sets"
	}
}
