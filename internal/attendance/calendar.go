package attendance

import "time"

// DayStatus is how a single calendar date renders for a mentor.
type DayStatus string

const (
	DayDisabled      DayStatus = "disabled"
	DayHoliday       DayStatus = "holiday"
	DayFutureInRange DayStatus = "future_in_range"
	DayOpen          DayStatus = "open"
	DayAllPresent    DayStatus = "all_present"
	DaySomePresent   DayStatus = "some_present"
	DayAllAbsent     DayStatus = "all_absent"
	// DayNoneAssigned is a recorded date with no entry for any student
	// currently assigned, e.g. after reassignment.
	DayNoneAssigned DayStatus = "none_assigned"
)

// CalendarDay is one rendered date.
type CalendarDay struct {
	Date    string    `json:"date"`
	Status  DayStatus `json:"status"`
	Present int       `json:"present"`
	Marked  int       `json:"marked"`
}

// StatusOn classifies a date given the mentor's record, the window and the
// assigned student ids. A nil window disables every date.
func StatusOn(day time.Time, record Record, window *Window, students []string, today time.Time) CalendarDay {
	key := DateKey(day)
	out := CalendarDay{Date: key}

	if window == nil || !window.Contains(day) {
		out.Status = DayDisabled
		return out
	}

	d := StartOfDay(day)
	t := StartOfDay(today.In(d.Location()))
	if d.After(t) {
		out.Status = DayFutureInRange
		return out
	}

	entry, ok := record.Day(key)
	if !ok {
		if d.Equal(t) {
			out.Status = DayOpen
		} else {
			out.Status = DayHoliday
		}
		return out
	}

	for _, id := range students {
		present, marked := entry[id]
		if marked {
			out.Marked++
		}
		if present {
			out.Present++
		}
	}

	switch {
	case out.Marked == 0:
		out.Status = DayNoneAssigned
	case out.Present == len(students):
		out.Status = DayAllPresent
	case out.Present > 0:
		out.Status = DaySomePresent
	default:
		out.Status = DayAllAbsent
	}
	return out
}

// Month renders every date of the month containing anchor.
func Month(anchor time.Time, record Record, window *Window, students []string, today time.Time) []CalendarDay {
	first := time.Date(anchor.Year(), anchor.Month(), 1, 0, 0, 0, 0, anchor.Location())
	next := first.AddDate(0, 1, 0)

	days := make([]CalendarDay, 0, 31)
	for d := first; d.Before(next); d = d.AddDate(0, 0, 1) {
		days = append(days, StatusOn(d, record, window, students, today))
	}
	return days
}
