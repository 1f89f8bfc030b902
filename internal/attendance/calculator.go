package attendance

import (
	"math"
	"time"
)

// Tally is the breakdown behind a percentage.
type Tally struct {
	TotalDays   int `json:"totalDays"`
	PresentDays int `json:"presentDays"`
	Percentage  int `json:"percentage"`
}

// Band classifies a percentage for display.
type Band string

const (
	BandGood     Band = "good"
	BandWarning  Band = "warning"
	BandCritical Band = "critical"
)

// DefaultAttentionThreshold is the percentage under which a student is flagged.
const DefaultAttentionThreshold = 80

// Count walks the window clipped to today and counts the days attendance
// was taken and the days the student was present on. Percentage is the
// rounded share of recorded days, or 0 when none falls in the range.
func Count(studentID string, record Record, window Window, today time.Time) Tally {
	var t Tally
	for _, key := range window.Days(today) {
		day, ok := record.Day(key)
		if !ok {
			continue
		}
		t.TotalDays++
		if day[studentID] {
			t.PresentDays++
		}
	}
	t.Percentage = ratio(t.PresentDays, t.TotalDays)
	return t
}

func ratio(present, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(present) / float64(total) * 100))
}

// BandFor maps a percentage onto a display band.
func BandFor(pct int) Band {
	switch {
	case pct >= 80:
		return BandGood
	case pct >= 50:
		return BandWarning
	default:
		return BandCritical
	}
}

// NeedsAttention reports whether pct is under threshold.
func NeedsAttention(pct, threshold int) bool {
	if threshold <= 0 {
		threshold = DefaultAttentionThreshold
	}
	return pct < threshold
}
