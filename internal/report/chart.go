// Package report turns raw training records into chart datasets and drives the report screen:
// fetching, visibility, chart selection, image export and report mailing.
package report

// Chart identifies one of the five report charts.
type Chart int

const (
	ChartType Chart = iota
	ChartExercise
	ChartStrength
	ChartCardio
	ChartCrossfit
)

const chartCount = 5

// AllCharts lists the charts in display order.
//
//nolint:gochecknoglobals // fixed enumeration.
var AllCharts = [chartCount]Chart{ChartType, ChartExercise, ChartStrength, ChartCardio, ChartCrossfit}

// Record titles emitted by the training backend.
const (
	TitleTrainingTypes = "Training types"
	TitleExercises     = "Exercises"
	TitleStrength      = "Strength exercises"
	TitleCardio        = "Cardio exercises"
	TitleCrossfit      = "Crossfit exercises"
)

// Key is the stable selection identifier used in forms, JSON and session storage.
func (c Chart) Key() string {
	switch c {
	case ChartType:
		return "typeChart"
	case ChartExercise:
		return "exerciseChart"
	case ChartStrength:
		return "strengthChart"
	case ChartCardio:
		return "cardioChart"
	case ChartCrossfit:
		return "crossfitChart"
	}
	return ""
}

// Title is the record title carrying the chart's data.
func (c Chart) Title() string {
	switch c {
	case ChartType:
		return TitleTrainingTypes
	case ChartExercise:
		return TitleExercises
	case ChartStrength:
		return TitleStrength
	case ChartCardio:
		return TitleCardio
	case ChartCrossfit:
		return TitleCrossfit
	}
	return ""
}

// Label is the human readable chart name.
func (c Chart) Label() string {
	switch c {
	case ChartType:
		return "Training types"
	case ChartExercise:
		return "Exercises"
	case ChartStrength:
		return "Strength"
	case ChartCardio:
		return "Cardio"
	case ChartCrossfit:
		return "Crossfit"
	}
	return ""
}

func (c Chart) String() string {
	return c.Key()
}

// IsDistribution reports whether the chart shows name/count buckets instead of a dated series.
func (c Chart) IsDistribution() bool {
	return c == ChartType || c == ChartExercise
}

// ChartForKey resolves a selection key.
func ChartForKey(key string) (Chart, bool) {
	for _, c := range AllCharts {
		if c.Key() == key {
			return c, true
		}
	}
	return 0, false
}

// ChartForTitle resolves a record title.
func ChartForTitle(title string) (Chart, bool) {
	for _, c := range AllCharts {
		if c.Title() == title {
			return c, true
		}
	}
	return 0, false
}

// Metric names a reserved total carried by cardio and crossfit points.
type Metric string

const (
	MetricNone          Metric = ""
	MetricTotalEnergy   Metric = "totalEnergy"
	MetricTotalDistance Metric = "totalDistance"
	MetricTotalRepeats  Metric = "totalRepeats"
	MetricTotalWeight   Metric = "totalWeight"
)

// Metrics returns the sub-view metrics of a chart. Only cardio and crossfit have any.
func (c Chart) Metrics() []Metric {
	switch c { //nolint:exhaustive // other charts have no sub-views.
	case ChartCardio:
		return []Metric{MetricTotalEnergy, MetricTotalDistance}
	case ChartCrossfit:
		return []Metric{MetricTotalRepeats, MetricTotalWeight}
	}
	return nil
}

// Label is the axis label of the metric.
func (m Metric) Label() string {
	switch m {
	case MetricTotalEnergy:
		return "Energy (kcal)"
	case MetricTotalDistance:
		return "Distance (km)"
	case MetricTotalRepeats:
		return "Repeats"
	case MetricTotalWeight:
		return "Weight (kg)"
	case MetricNone:
	}
	return ""
}

// IsReservedKey reports whether key is a point field that never names an exercise category.
func IsReservedKey(key string) bool {
	switch Metric(key) {
	case "date", "name", MetricTotalEnergy, MetricTotalDistance, MetricTotalRepeats, MetricTotalWeight:
		return true
	case MetricNone:
	}
	return false
}
