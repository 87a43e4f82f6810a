package report

import (
	"encoding/json"
	"fmt"

	"github.com/myrjola/coachreports/internal/errors"
)

var ErrUnknownChart = errors.NewSentinel("unknown chart")

// Selection records which charts are included in a report. It is a value type: copies are independent.
type Selection struct {
	enabled [chartCount]bool
}

// SelectAllCharts returns a selection with every chart enabled.
func SelectAllCharts() Selection {
	var s Selection
	for i := range s.enabled {
		s.enabled[i] = true
	}
	return s
}

// SelectionOf returns a selection with exactly the given charts enabled.
func SelectionOf(charts ...Chart) Selection {
	var s Selection
	for _, c := range charts {
		s = s.With(c, true)
	}
	return s
}

// SelectionFromKeys resolves selection keys. Unknown keys fail with ErrUnknownChart.
func SelectionFromKeys(keys []string) (Selection, error) {
	var s Selection
	for _, k := range keys {
		c, ok := ChartForKey(k)
		if !ok {
			return Selection{}, fmt.Errorf("%w: %q", ErrUnknownChart, k)
		}
		s = s.With(c, true)
	}
	return s, nil
}

func (s Selection) Enabled(c Chart) bool {
	if c < 0 || int(c) >= chartCount {
		return false
	}
	return s.enabled[c]
}

// With returns a copy with chart c set to on.
func (s Selection) With(c Chart, on bool) Selection {
	if c >= 0 && int(c) < chartCount {
		s.enabled[c] = on
	}
	return s
}

// Toggle returns a copy with chart c flipped.
func (s Selection) Toggle(c Chart) Selection {
	return s.With(c, !s.Enabled(c))
}

// Count is the number of enabled charts.
func (s Selection) Count() int {
	n := 0
	for _, on := range s.enabled {
		if on {
			n++
		}
	}
	return n
}

// AllChecked reports whether every chart is enabled.
func (s Selection) AllChecked() bool {
	return s.Count() == chartCount
}

// NoneChecked reports whether no chart is enabled.
func (s Selection) NoneChecked() bool {
	return s.Count() == 0
}

// Indeterminate reports whether some but not all charts are enabled.
func (s Selection) Indeterminate() bool {
	return !s.AllChecked() && !s.NoneChecked()
}

// Charts lists the enabled charts in display order.
func (s Selection) Charts() []Chart {
	var charts []Chart
	for _, c := range AllCharts {
		if s.Enabled(c) {
			charts = append(charts, c)
		}
	}
	return charts
}

// Keys lists the keys of the enabled charts in display order.
func (s Selection) Keys() []string {
	keys := []string{}
	for _, c := range s.Charts() {
		keys = append(keys, c.Key())
	}
	return keys
}

// MarshalJSON emits {"typeChart": true, ...} with every key present.
func (s Selection) MarshalJSON() ([]byte, error) {
	flags := make(map[string]bool, chartCount)
	for _, c := range AllCharts {
		flags[c.Key()] = s.Enabled(c)
	}
	b, err := json.Marshal(flags)
	if err != nil {
		return nil, fmt.Errorf("marshal selection: %w", err)
	}
	return b, nil
}

// UnmarshalJSON accepts the object form. Missing keys are disabled and unknown keys fail.
func (s *Selection) UnmarshalJSON(data []byte) error {
	var flags map[string]bool
	if err := json.Unmarshal(data, &flags); err != nil {
		return fmt.Errorf("unmarshal selection: %w", err)
	}
	var sel Selection
	for k, on := range flags {
		c, ok := ChartForKey(k)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownChart, k)
		}
		sel = sel.With(c, on)
	}
	*s = sel
	return nil
}
