package report

import (
	"slices"
)

// CategorySet is an insertion ordered set of category names.
type CategorySet struct {
	names []string
	seen  map[string]struct{}
}

// NewCategorySet returns a set holding names without duplicates.
func NewCategorySet(names ...string) CategorySet {
	var s CategorySet
	for _, n := range names {
		s.Add(n)
	}
	return s
}

// Add inserts name unless it is already present.
func (s *CategorySet) Add(name string) {
	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	if _, ok := s.seen[name]; ok {
		return
	}
	s.seen[name] = struct{}{}
	s.names = append(s.names, name)
}

func (s CategorySet) Has(name string) bool {
	_, ok := s.seen[name]
	return ok
}

func (s CategorySet) Len() int {
	return len(s.names)
}

// Names returns the names in insertion order.
func (s CategorySet) Names() []string {
	return slices.Clone(s.names)
}

// Sorted returns the names in lexical order.
func (s CategorySet) Sorted() []string {
	names := s.Names()
	slices.Sort(names)
	return names
}

// Entry is one slice of a distribution chart.
type Entry struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// View is a series projected onto a single reserved metric together with the exercise values.
type View struct {
	Metric     Metric
	Points     []Point
	Categories CategorySet
}

// Dataset is the classified data of one chart.
type Dataset struct {
	Chart Chart
	// Entries is set for distribution charts.
	Entries []Entry
	// Points is set for series charts, sorted by date.
	Points []Point
	// Categories are the distinct entry names or exercise keys.
	Categories CategorySet
	// Views holds the metric sub-views of cardio and crossfit in [Chart.Metrics] order.
	Views []View
}

// Len is the number of entries or points. A nil dataset has none.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Entries) + len(d.Points)
}

// Presence classifies the dataset for visibility decisions.
func (d *Dataset) Presence() Presence {
	switch {
	case d == nil:
		return PresenceAbsent
	case d.Len() == 0:
		return PresenceEmpty
	default:
		return PresenceNonEmpty
	}
}

// View returns the sub-view for m.
func (d *Dataset) View(m Metric) (View, bool) {
	if d == nil {
		return View{}, false
	}
	for _, v := range d.Views {
		if v.Metric == m {
			return v, true
		}
	}
	return View{}, false
}

// Datasets holds the classified data of every chart. A nil field means the backend sent no record for it.
type Datasets struct {
	Type     *Dataset
	Exercise *Dataset
	Strength *Dataset
	Cardio   *Dataset
	Crossfit *Dataset
}

// Get returns the dataset of chart c.
func (ds Datasets) Get(c Chart) *Dataset {
	switch c {
	case ChartType:
		return ds.Type
	case ChartExercise:
		return ds.Exercise
	case ChartStrength:
		return ds.Strength
	case ChartCardio:
		return ds.Cardio
	case ChartCrossfit:
		return ds.Crossfit
	}
	return nil
}

func (ds *Datasets) set(c Chart, d *Dataset) {
	switch c {
	case ChartType:
		ds.Type = d
	case ChartExercise:
		ds.Exercise = d
	case ChartStrength:
		ds.Strength = d
	case ChartCardio:
		ds.Cardio = d
	case ChartCrossfit:
		ds.Crossfit = d
	}
}

// Empty reports whether no chart has a dataset.
func (ds Datasets) Empty() bool {
	for _, c := range AllCharts {
		if ds.Get(c) != nil {
			return false
		}
	}
	return true
}

// Classify routes the records into chart datasets by title.
//
// Unknown titles are ignored and for a repeated title the first record wins. A record with no entries still yields
// an empty dataset so that "present but empty" stays distinguishable from "absent". The input is not modified.
func Classify(records []RawRecord) Datasets {
	var ds Datasets
	for _, rec := range records {
		chart, ok := ChartForTitle(rec.Title)
		if !ok || ds.Get(chart) != nil {
			continue
		}
		ds.set(chart, classifyRecord(chart, rec))
	}
	return ds
}

func classifyRecord(chart Chart, rec RawRecord) *Dataset {
	d := &Dataset{Chart: chart}
	if chart.IsDistribution() {
		d.Entries = make([]Entry, 0, len(rec.Counts))
		for _, c := range rec.Counts {
			d.Entries = append(d.Entries, Entry{Name: c.ID, Value: c.Count})
			d.Categories.Add(c.ID)
		}
		return d
	}

	d.Points = make([]Point, 0, len(rec.Points))
	for _, p := range rec.Points {
		d.Points = append(d.Points, p.clone())
	}
	slices.SortStableFunc(d.Points, func(a, b Point) int {
		switch {
		case a.Date < b.Date:
			return -1
		case a.Date > b.Date:
			return 1
		}
		return 0
	})
	d.Categories = seriesCategories(d.Points)
	for _, m := range chart.Metrics() {
		d.Views = append(d.Views, project(d.Points, m))
	}
	return d
}

func seriesCategories(points []Point) CategorySet {
	var s CategorySet
	for _, p := range points {
		for _, name := range p.Categories() {
			s.Add(name)
		}
	}
	return s
}

// project keeps the points carrying metric m and drops the other reserved totals from them.
func project(points []Point, m Metric) View {
	v := View{Metric: m, Points: []Point{}}
	for _, p := range points {
		total, ok := p.Values[string(m)]
		if !ok {
			continue
		}
		projected := Point{Date: p.Date, Values: map[string]float64{string(m): total}}
		for k, val := range p.Values {
			if !IsReservedKey(k) {
				projected.Values[k] = val
			}
		}
		v.Points = append(v.Points, projected)
	}
	v.Categories = seriesCategories(v.Points)
	return v
}
