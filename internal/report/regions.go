package report

import "fmt"

type regionSpec struct {
	id     string
	chart  Chart
	metric Metric
}

// Region ids, one per rendered chart area. Cardio and crossfit are split into one area per metric.
//
//nolint:gochecknoglobals // fixed lookup table.
var regionSpecs = []regionSpec{
	{id: "type-chart", chart: ChartType, metric: MetricNone},
	{id: "exercise-chart", chart: ChartExercise, metric: MetricNone},
	{id: "strength-chart", chart: ChartStrength, metric: MetricNone},
	{id: "cardio-energy-chart", chart: ChartCardio, metric: MetricTotalEnergy},
	{id: "cardio-distance-chart", chart: ChartCardio, metric: MetricTotalDistance},
	{id: "crossfit-repeats-chart", chart: ChartCrossfit, metric: MetricTotalRepeats},
	{id: "crossfit-weight-chart", chart: ChartCrossfit, metric: MetricTotalWeight},
}

// RegionIDs lists every region id in display order.
func RegionIDs() []string {
	ids := make([]string, 0, len(regionSpecs))
	for _, s := range regionSpecs {
		ids = append(ids, s.id)
	}
	return ids
}

// RegionIDsOf lists the region ids belonging to chart c.
func RegionIDsOf(c Chart) []string {
	var ids []string
	for _, s := range regionSpecs {
		if s.chart == c {
			ids = append(ids, s.id)
		}
	}
	return ids
}

func lookupRegion(id string) (regionSpec, bool) {
	for _, s := range regionSpecs {
		if s.id == id {
			return s, true
		}
	}
	return regionSpec{}, false
}

// Region is the data behind one chart area as currently decided by visibility.
type Region struct {
	ID         string
	Chart      Chart
	Metric     Metric
	Decision   Decision
	Entries    []Entry
	Points     []Point
	Categories CategorySet
}

// Title is the heading of the area.
func (r Region) Title() string {
	if r.Metric == MetricNone {
		return r.Chart.Label()
	}
	return fmt.Sprintf("%s: %s", r.Chart.Label(), r.Metric.Label())
}

// HasData reports whether there is anything to draw.
func (r Region) HasData() bool {
	return r.Decision != DecisionEmpty && len(r.Entries)+len(r.Points) > 0
}

// RegionSource looks up regions by id. The second result is false for unknown ids.
type RegionSource interface {
	Region(id string) (Region, bool)
}

// BuildRegion resolves region id from the chart's live dataset and its visibility decision.
func BuildRegion(id string, live *Dataset, decision Decision) (Region, bool) {
	spec, ok := lookupRegion(id)
	if !ok {
		return Region{}, false
	}
	r := Region{ID: spec.id, Chart: spec.chart, Metric: spec.metric, Decision: decision}
	var ds *Dataset
	switch decision {
	case DecisionLive:
		ds = live
	case DecisionPlaceholder:
		ds = Placeholder(spec.chart)
	case DecisionEmpty:
		return r, true
	}
	if ds == nil || ds.Chart != spec.chart {
		return r, true
	}
	if spec.metric == MetricNone {
		r.Entries = ds.Entries
		r.Points = ds.Points
		r.Categories = ds.Categories
		return r, true
	}
	if view, found := ds.View(spec.metric); found {
		r.Points = view.Points
		r.Categories = view.Categories
	}
	return r, true
}
