package report

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/myrjola/coachreports/internal/errors"
)

// ErrMalformedRecords is returned when a response is not a list of records at all.
var ErrMalformedRecords = errors.NewSentinel("malformed records")

// Count is one bucket of a distribution record.
type Count struct {
	ID    string  `json:"_id"`
	Count float64 `json:"count"`
}

// Point is one dated entry of a series record.
//
// Values holds every numeric field except the date: the per-exercise values and the reserved totals.
type Point struct {
	Date   string
	Values map[string]float64
}

// Categories returns the non-reserved keys of the point in sorted order.
func (p Point) Categories() []string {
	var names []string
	for k := range p.Values {
		if !IsReservedKey(k) {
			names = append(names, k)
		}
	}
	slices.Sort(names)
	return names
}

// Value returns the value stored under key.
func (p Point) Value(key string) (float64, bool) {
	v, ok := p.Values[key]
	return v, ok
}

func (p Point) clone() Point {
	return Point{Date: p.Date, Values: maps.Clone(p.Values)}
}

// MarshalJSON flattens the point into {"date": ..., "<key>": <number>, ...}.
func (p Point) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(p.Values)+1)
	for k, v := range p.Values {
		flat[k] = v
	}
	flat["date"] = p.Date
	b, err := json.Marshal(flat)
	if err != nil {
		return nil, fmt.Errorf("marshal point: %w", err)
	}
	return b, nil
}

// UnmarshalJSON accepts a flat object. Fields that are not numbers are ignored.
func (p *Point) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("unmarshal point: %w", err)
	}
	p.Date = ""
	p.Values = make(map[string]float64, len(fields))
	for k, raw := range fields {
		if k == "date" {
			_ = json.Unmarshal(raw, &p.Date)
			continue
		}
		var v float64
		if json.Unmarshal(raw, &v) == nil {
			p.Values[k] = v
		}
	}
	return nil
}

// RawRecord is one titled block of a data response. Counts is used by the distribution titles and Points by the
// series titles.
type RawRecord struct {
	Title  string
	Counts []Count
	Points []Point
}

// Len is the number of entries of the record regardless of its shape.
func (r RawRecord) Len() int {
	return len(r.Counts) + len(r.Points)
}

type wireRecord struct {
	Title string          `json:"title"`
	Data  json.RawMessage `json:"data"`
}

// MarshalJSON emits {"title": ..., "data": [...]}.
func (r RawRecord) MarshalJSON() ([]byte, error) {
	var data any = r.Points
	if c, ok := ChartForTitle(r.Title); ok && c.IsDistribution() {
		data = r.Counts
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal record data: %w", err)
	}
	if string(raw) == "null" {
		raw = json.RawMessage("[]")
	}
	b, err := json.Marshal(wireRecord{Title: r.Title, Data: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	return b, nil
}

// DecodeRecords validates a data response at the trust boundary.
//
// A response that is not a JSON array fails with ErrMalformedRecords. Everything below that degrades: records with
// unknown titles or non-array data are dropped, counts without a string id or numeric count are skipped, and points
// that are not objects or lack a date are skipped.
func DecodeRecords(data []byte) ([]RawRecord, error) {
	var wire []json.RawMessage
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedRecords, err)
	}
	records := make([]RawRecord, 0, len(wire))
	for _, raw := range wire {
		var w wireRecord
		if json.Unmarshal(raw, &w) != nil {
			continue
		}
		chart, ok := ChartForTitle(w.Title)
		if !ok {
			continue
		}
		var items []json.RawMessage
		if json.Unmarshal(w.Data, &items) != nil {
			continue
		}
		rec := RawRecord{Title: w.Title}
		if chart.IsDistribution() {
			rec.Counts = decodeCounts(items)
		} else {
			rec.Points = decodePoints(items)
		}
		records = append(records, rec)
	}
	return records, nil
}

func decodeCounts(items []json.RawMessage) []Count {
	counts := make([]Count, 0, len(items))
	for _, item := range items {
		var c struct {
			ID    *string  `json:"_id"`
			Count *float64 `json:"count"`
		}
		if json.Unmarshal(item, &c) != nil || c.ID == nil || c.Count == nil {
			continue
		}
		counts = append(counts, Count{ID: *c.ID, Count: *c.Count})
	}
	return counts
}

func decodePoints(items []json.RawMessage) []Point {
	points := make([]Point, 0, len(items))
	for _, item := range items {
		var p Point
		if p.UnmarshalJSON(item) != nil || p.Date == "" {
			continue
		}
		points = append(points, p)
	}
	return points
}
