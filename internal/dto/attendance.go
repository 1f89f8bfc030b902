package dto

import "github.com/noah-isme/mentor-portal-api/internal/attendance"

// Reasons a percentage is unavailable.
const (
	ReasonConfigMissing = "CONFIG_MISSING"
	ReasonNotAssigned   = "NOT_ASSIGNED"
)

// AttendanceWindowRequest replaces the attendance window.
type AttendanceWindowRequest struct {
	StartDate string `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"endDate" validate:"required,datetime=2006-01-02"`
}

// AttendanceWindowResponse echoes the configured window.
type AttendanceWindowResponse struct {
	StartDate  string `json:"startDate"`
	EndDate    string `json:"endDate"`
	OpenToday  bool   `json:"openToday"`
	Configured bool   `json:"configured"`
}

// StudentAttendanceRow is one line of the mentor overview.
type StudentAttendanceRow struct {
	StudentID      string          `json:"studentId"`
	DisplayName    string          `json:"displayName"`
	Email          string          `json:"email"`
	Percentage     *int            `json:"percentage"`
	TotalDays      int             `json:"totalDays"`
	PresentDays    int             `json:"presentDays"`
	Band           attendance.Band `json:"band,omitempty"`
	Today          *bool           `json:"today"`
	NeedsAttention bool            `json:"needsAttention"`
}

// OverviewSummary aggregates the mentor overview.
type OverviewSummary struct {
	Assigned       int `json:"assigned"`
	PresentToday   int `json:"presentToday"`
	AbsentToday    int `json:"absentToday"`
	NotMarked      int `json:"notMarked"`
	NeedsAttention int `json:"needsAttention"`
}

// MentorOverviewResponse is the mentor's attendance dashboard.
type MentorOverviewResponse struct {
	MentorID  string                    `json:"mentorId"`
	Date      string                    `json:"date"`
	Window    *AttendanceWindowResponse `json:"window"`
	Available bool                      `json:"available"`
	Reason    string                    `json:"reason,omitempty"`
	State     attendance.State          `json:"state"`
	Students  []StudentAttendanceRow    `json:"students"`
	Summary   OverviewSummary           `json:"summary"`
}

// StudentAttendanceResponse is a student's own attendance summary.
type StudentAttendanceResponse struct {
	StudentID   string                    `json:"studentId"`
	MentorID    *string                   `json:"mentorId"`
	Available   bool                      `json:"available"`
	Reason      string                    `json:"reason,omitempty"`
	Percentage  *int                      `json:"percentage"`
	TotalDays   int                       `json:"totalDays"`
	PresentDays int                       `json:"presentDays"`
	Band        attendance.Band           `json:"band,omitempty"`
	Window      *AttendanceWindowResponse `json:"window"`
}

// DayEntry is a student's mark on a date, plus any staged toggle for today.
type DayEntry struct {
	StudentID   string `json:"studentId"`
	DisplayName string `json:"displayName"`
	Present     *bool  `json:"present"`
	Staged      *bool  `json:"staged,omitempty"`
}

// DayResponse is the view of one date of a mentor's record.
type DayResponse struct {
	Date     string           `json:"date"`
	Editable bool             `json:"editable"`
	Taken    bool             `json:"taken"`
	State    attendance.State `json:"state,omitempty"`
	Entries  []DayEntry       `json:"entries"`
}

// StageAttendanceRequest toggles one student for today.
type StageAttendanceRequest struct {
	Present *bool `json:"present" validate:"required"`
}

// SubmitAttendanceRequest optionally carries toggles to stage before submitting.
type SubmitAttendanceRequest struct {
	Entries map[string]bool `json:"entries"`
}

// SubmitAttendanceResponse reports the persisted day.
type SubmitAttendanceResponse struct {
	Date        string           `json:"date"`
	Entries     map[string]bool  `json:"entries"`
	State       attendance.State `json:"state"`
	Percentages map[string]int   `json:"percentages"`
}

// CalendarResponse is a month of day statuses.
type CalendarResponse struct {
	Month string                   `json:"month"`
	Days  []attendance.CalendarDay `json:"days"`
}
