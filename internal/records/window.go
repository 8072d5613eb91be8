package records

import (
	"fmt"
	"time"
)

const (
	// DateLayout is the calendar date format used in query strings and exports.
	DateLayout = "2006-01-02"
	// MonthLayout is the calendar month format used in query strings.
	MonthLayout = "2006-01"
)

// TimeWindow is an inclusive range of whole days.
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NewWindow builds a window over the calendar days of start and end.
func NewWindow(start, end time.Time) TimeWindow {
	return TimeWindow{Start: Day(start), End: Day(end)}
}

// MonthWindow covers every day of the given calendar month.
func MonthWindow(year int, month time.Month) TimeWindow {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return TimeWindow{Start: start, End: start.AddDate(0, 1, -1)}
}

// ParseMonth parses "2006-01" into a month window.
func ParseMonth(s string) (TimeWindow, error) {
	t, err := time.Parse(MonthLayout, s)
	if err != nil {
		return TimeWindow{}, fmt.Errorf("%w: month %q", ErrInvalidInput, s)
	}
	return MonthWindow(t.Year(), t.Month()), nil
}

// ParseRange parses two "2006-01-02" dates into a validated window.
func ParseRange(from, to string) (TimeWindow, error) {
	start, err := time.Parse(DateLayout, from)
	if err != nil {
		return TimeWindow{}, fmt.Errorf("%w: from date %q", ErrInvalidInput, from)
	}
	end, err := time.Parse(DateLayout, to)
	if err != nil {
		return TimeWindow{}, fmt.Errorf("%w: to date %q", ErrInvalidInput, to)
	}
	w := NewWindow(start, end)
	if err := w.Validate(); err != nil {
		return TimeWindow{}, err
	}
	return w, nil
}

// IsZero reports whether no window was supplied.
func (w TimeWindow) IsZero() bool {
	return w.Start.IsZero() && w.End.IsZero()
}

// Validate checks the window is present and ordered.
func (w TimeWindow) Validate() error {
	if w.Start.IsZero() || w.End.IsZero() {
		return ErrWindowRequired
	}
	if Day(w.End).Before(Day(w.Start)) {
		return ErrInvalidWindow
	}
	return nil
}

// Contains reports whether t falls on a day inside the window.
func (w TimeWindow) Contains(t time.Time) bool {
	d := Day(t)
	return !d.Before(Day(w.Start)) && !d.After(Day(w.End))
}

// Intersect narrows w to o. The result may be empty (End before Start), in
// which case it contains no dates.
func (w TimeWindow) Intersect(o TimeWindow) TimeWindow {
	out := TimeWindow{Start: Day(w.Start), End: Day(w.End)}
	if s := Day(o.Start); s.After(out.Start) {
		out.Start = s
	}
	if e := Day(o.End); e.Before(out.End) {
		out.End = e
	}
	return out
}

// String renders the window as "start..end".
func (w TimeWindow) String() string {
	return w.Start.Format(DateLayout) + ".." + w.End.Format(DateLayout)
}
