package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/myrjola/coachreports/internal/errors"
)

// DateLayout is the calendar date format used on the wire and in query parameters.
const DateLayout = time.DateOnly

var ErrInvalidDateRange = errors.NewSentinel("invalid date range")

// DateRange is a pair of optional inclusive calendar bounds. Exactly one nil bound means the range is still being
// picked.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

// NewDateRange returns a fully specified range.
func NewDateRange(start, end time.Time) DateRange {
	return DateRange{Start: &start, End: &end}
}

// Complete reports whether both bounds are set.
func (r DateRange) Complete() bool {
	return r.Start != nil && r.End != nil
}

// Open reports whether neither bound is set.
func (r DateRange) Open() bool {
	return r.Start == nil && r.End == nil
}

// Contains reports whether the calendar date of t falls within the range. Missing bounds are unbounded.
func (r DateRange) Contains(t time.Time) bool {
	d := t.Format(DateLayout)
	if r.Start != nil && d < r.Start.Format(DateLayout) {
		return false
	}
	if r.End != nil && d > r.End.Format(DateLayout) {
		return false
	}
	return true
}

// Equal compares the calendar dates of both bounds.
func (r DateRange) Equal(o DateRange) bool {
	return sameDay(r.Start, o.Start) && sameDay(r.End, o.End)
}

func sameDay(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Format(DateLayout) == b.Format(DateLayout)
}

// Bounds returns the bounds formatted as dates, empty for missing ones.
func (r DateRange) Bounds() (string, string) {
	return formatBound(r.Start), formatBound(r.End)
}

func formatBound(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(DateLayout)
}

func (r DateRange) String() string {
	from, to := r.Bounds()
	return fmt.Sprintf("[%s, %s]", from, to)
}

// ParseDateRange parses the two bounds as dates. Empty strings leave the bound unset.
func ParseDateRange(from, to string) (DateRange, error) {
	var (
		r   DateRange
		err error
	)
	if r.Start, err = parseBound(from); err != nil {
		return DateRange{}, fmt.Errorf("%w: start: %w", ErrInvalidDateRange, err)
	}
	if r.End, err = parseBound(to); err != nil {
		return DateRange{}, fmt.Errorf("%w: end: %w", ErrInvalidDateRange, err)
	}
	if r.Complete() && r.End.Before(*r.Start) {
		return DateRange{}, fmt.Errorf("%w: end %s before start %s", ErrInvalidDateRange, to, from)
	}
	return r, nil
}

func parseBound(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil //nolint:nilnil // a missing bound is not an error.
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", s, err)
	}
	return &t, nil
}

// MarshalJSON emits the two element array [start, end] with null for missing bounds.
func (r DateRange) MarshalJSON() ([]byte, error) {
	bounds := [2]*string{}
	for i, t := range []*time.Time{r.Start, r.End} {
		if t != nil {
			s := t.Format(DateLayout)
			bounds[i] = &s
		}
	}
	b, err := json.Marshal(bounds)
	if err != nil {
		return nil, fmt.Errorf("marshal date range: %w", err)
	}
	return b, nil
}

// UnmarshalJSON accepts [start, end] where each element is a date, an RFC 3339 timestamp or null.
// An absent or null range is the open range.
func (r *DateRange) UnmarshalJSON(data []byte) error {
	var bounds []*string
	if err := json.Unmarshal(data, &bounds); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDateRange, err)
	}
	if len(bounds) != 0 && len(bounds) != 2 {
		return fmt.Errorf("%w: want two bounds, got %d", ErrInvalidDateRange, len(bounds))
	}
	var from, to string
	if len(bounds) == 2 { //nolint:mnd // start and end.
		if bounds[0] != nil {
			from = *bounds[0]
		}
		if bounds[1] != nil {
			to = *bounds[1]
		}
	}
	parsed, err := ParseDateRange(from, to)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
