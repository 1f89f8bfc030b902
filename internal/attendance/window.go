// Package attendance holds the role-agnostic attendance rules: the marking
// window, the sparse per-mentor record, the percentage calculator and the
// same-day marking session.
package attendance

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the key format used for every date in a Record.
const DateLayout = "2006-01-02"

// DateKey formats t as a record key.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD value as midnight in loc.
func ParseDate(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(raw), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", raw, err)
	}
	return t, nil
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last nanosecond of t's calendar day.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// SameDay reports whether a and b fall on the same calendar date in a's location.
func SameDay(a, b time.Time) bool {
	return DateKey(a) == DateKey(b.In(a.Location()))
}

// Window is the admin-configured range of dates eligible for marking and
// for percentage computation. Both bounds are inclusive calendar dates.
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow normalises both bounds to midnight.
func NewWindow(start, end time.Time) Window {
	return Window{Start: StartOfDay(start), End: StartOfDay(end.In(start.Location()))}
}

// Valid reports whether Start is not after End by date.
func (w Window) Valid() bool {
	return !StartOfDay(w.Start).After(StartOfDay(w.End))
}

// Contains reports whether day falls within the window, comparing dates only.
func (w Window) Contains(day time.Time) bool {
	d := StartOfDay(day.In(w.Start.Location()))
	return !d.Before(StartOfDay(w.Start)) && !d.After(StartOfDay(w.End))
}

// Days returns the record keys the calculator inspects for the given today:
// every date from Start through min(End, today). A degenerate window yields
// no keys.
func (w Window) Days(today time.Time) []string {
	start := StartOfDay(w.Start)
	end := EndOfDay(w.End)
	now := today.In(start.Location())

	var keys []string
	for iter := start; !iter.After(end) && !iter.After(now); iter = iter.AddDate(0, 0, 1) {
		keys = append(keys, DateKey(iter))
	}
	return keys
}
