package models

import "time"

// AttendanceEntry is one persisted mark: a mentor's record for a student on a date.
type AttendanceEntry struct {
	MentorID  string    `db:"mentor_id" json:"mentor_id"`
	Date      string    `db:"date" json:"date"`
	StudentID string    `db:"student_id" json:"student_id"`
	Present   bool      `db:"present" json:"present"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// AttendanceWindow is the admin-configured marking range in YYYY-MM-DD form.
type AttendanceWindow struct {
	StartDate string     `json:"start_date"`
	EndDate   string     `json:"end_date"`
	UpdatedBy *string    `json:"updated_by,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}
