package chartrender

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/myrjola/coachreports/internal/errors"
	"github.com/myrjola/coachreports/internal/report"
)

// renderer is implemented by every go-echarts chart.
type renderer interface {
	Render(w io.Writer) error
}

// HTML renders region as a standalone interactive page.
func HTML(w io.Writer, region report.Region) error {
	if !region.HasData() {
		return errors.Wrap(ErrNothingToDraw, "render html", regionAttr(region))
	}
	var (
		r   renderer
		err error
	)
	if region.Chart.IsDistribution() {
		r = pie(region)
	} else if r, err = line(region); err != nil {
		return err
	}
	// Render into a buffer first so a failure does not leave a half written page behind.
	var buf bytes.Buffer
	if err = r.Render(&buf); err != nil {
		return errors.Wrap(err, "render html", regionAttr(region))
	}
	if _, err = buf.WriteTo(w); err != nil {
		return fmt.Errorf("write chart page: %w", err)
	}
	return nil
}

func globalOptions(region report.Region) []charts.GlobalOpts {
	return []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: region.Title(),
			ChartID:   region.ID,
			Width:     "100%",
			Height:    "420px",
		}),
		charts.WithTitleOpts(opts.Title{Title: region.Title(), Subtitle: subtitle(region)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Bottom: "0"}),
		charts.WithColorsOpts(opts.Colors(palette)),
	}
}

func subtitle(region report.Region) string {
	if region.Decision == report.DecisionPlaceholder {
		return "Sample data"
	}
	return ""
}

func pie(region report.Region) *charts.Pie {
	p := charts.NewPie()
	p.SetGlobalOptions(append(globalOptions(region),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "item"}))...)
	items := make([]opts.PieData, 0, len(region.Entries))
	for _, e := range region.Entries {
		items = append(items, opts.PieData{Name: e.Name, Value: e.Value})
	}
	p.AddSeries(region.Chart.Label(), items).SetSeriesOptions(
		charts.WithPieChartOpts(opts.PieChart{Radius: []string{"35%", "65%"}}),
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Formatter: "{b}: {c}"}),
	)
	return p
}

func line(region report.Region) (*charts.Line, error) {
	lines, err := seriesOf(region)
	if err != nil {
		return nil, err
	}
	l := charts.NewLine()
	l.SetGlobalOptions(append(globalOptions(region),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithYAxisOpts(opts.YAxis{Name: yAxisName(region)}),
	)...)
	axis := axisDates(region)
	l.SetXAxis(axis)
	for _, s := range lines {
		byDate := make(map[string]float64, len(s.dates))
		for i, d := range s.dates {
			byDate[d.Format(report.DateLayout)] = s.values[i]
		}
		items := make([]opts.LineData, 0, len(axis))
		for _, d := range axis {
			if v, ok := byDate[d]; ok {
				items = append(items, opts.LineData{Value: v})
			} else {
				// "-" is the echarts marker for a missing value.
				items = append(items, opts.LineData{Value: "-"})
			}
		}
		l.AddSeries(s.name, items)
	}
	l.SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true), ConnectNulls: opts.Bool(true)}))
	return l, nil
}
