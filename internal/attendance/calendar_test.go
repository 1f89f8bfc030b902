package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusOn(t *testing.T) {
	window := NewWindow(date(t, "2024-01-02"), date(t, "2024-01-10"))
	record := Record{
		"2024-01-02": {"s1": true, "s2": true},
		"2024-01-03": {"s1": true, "s2": false},
		"2024-01-04": {"s1": false},
		"2024-01-05": {"moved": true},
	}
	students := []string{"s1", "s2"}
	today := date(t, "2024-01-06")

	cases := map[string]DayStatus{
		"2024-01-01": DayDisabled,
		"2024-01-02": DayAllPresent,
		"2024-01-03": DaySomePresent,
		"2024-01-04": DayAllAbsent,
		"2024-01-05": DayNoneAssigned,
		"2024-01-06": DayOpen,
		"2024-01-07": DayFutureInRange,
		"2024-01-11": DayDisabled,
	}
	for raw, want := range cases {
		got := StatusOn(date(t, raw), record, &window, students, today)
		assert.Equal(t, want, got.Status, raw)
	}

	got := StatusOn(date(t, "2024-01-04"), record, &window, students, today)
	assert.Equal(t, 1, got.Marked)
	assert.Equal(t, 0, got.Present)

	got = StatusOn(date(t, "2024-01-05"), record, &window, students, today)
	assert.Zero(t, got.Marked)
	assert.Zero(t, got.Present)
	assert.Equal(t, DayNoneAssigned, StatusOn(date(t, "2024-01-02"), record, &window, nil, today).Status)
}

func TestStatusOnPastUnrecordedDayIsHoliday(t *testing.T) {
	window := NewWindow(date(t, "2024-01-02"), date(t, "2024-01-10"))
	got := StatusOn(date(t, "2024-01-03"), Record{}, &window, []string{"s1"}, date(t, "2024-01-06"))
	assert.Equal(t, DayHoliday, got.Status)
}

func TestStatusOnWithoutWindow(t *testing.T) {
	got := StatusOn(date(t, "2024-01-02"), Record{}, nil, nil, date(t, "2024-01-02"))
	assert.Equal(t, DayDisabled, got.Status)
}

func TestMonth(t *testing.T) {
	window := NewWindow(date(t, "2024-02-01"), date(t, "2024-02-29"))
	days := Month(date(t, "2024-02-15"), Record{}, &window, nil, date(t, "2024-02-10"))

	require.Len(t, days, 29)
	assert.Equal(t, "2024-02-01", days[0].Date)
	assert.Equal(t, DayHoliday, days[0].Status)
	assert.Equal(t, DayOpen, days[9].Status)
	assert.Equal(t, DayFutureInRange, days[28].Status)
}

func TestWindowContainsIsDateOnly(t *testing.T) {
	window := NewWindow(date(t, "2024-01-01"), date(t, "2024-01-05"))

	assert.True(t, window.Contains(date(t, "2024-01-05").Add(23*time.Hour)))
	assert.True(t, window.Contains(date(t, "2024-01-01")))
	assert.False(t, window.Contains(date(t, "2024-01-06")))
	assert.False(t, window.Contains(date(t, "2023-12-31").Add(23*time.Hour)))
}

func TestParseDateRejectsGarbage(t *testing.T) {
	_, err := ParseDate("01/02/2024", time.UTC)
	assert.Error(t, err)
}
