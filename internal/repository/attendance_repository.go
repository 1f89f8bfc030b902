package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/mentor-portal-api/internal/attendance"
	"github.com/noah-isme/mentor-portal-api/internal/models"
)

// AttendanceRepository stores mentor attendance as one row per
// (mentor, date, student).
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// GetMentorAttendance loads the mentor's full record. A mentor who never
// submitted gets an empty record.
func (r *AttendanceRepository) GetMentorAttendance(ctx context.Context, mentorID string) (attendance.Record, error) {
	const query = `SELECT mentor_id, to_char(date, 'YYYY-MM-DD') AS date, student_id, present, updated_at
FROM attendance_entries WHERE mentor_id = $1 ORDER BY date ASC, student_id ASC`
	var rows []models.AttendanceEntry
	if err := r.db.SelectContext(ctx, &rows, query, mentorID); err != nil {
		return nil, fmt.Errorf("load mentor attendance: %w", err)
	}
	return entriesToRecord(rows), nil
}

// MergeMentorAttendance upserts each student entry for one date inside a
// transaction. Entries for other students and other dates are untouched.
func (r *AttendanceRepository) MergeMentorAttendance(ctx context.Context, mentorID, date string, entries attendance.Day) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin attendance tx: %w", err)
	}
	const query = `INSERT INTO attendance_entries (mentor_id, date, student_id, present, updated_at)
VALUES (:mentor_id, :date, :student_id, :present, :updated_at)
ON CONFLICT (mentor_id, date, student_id)
DO UPDATE SET present = EXCLUDED.present, updated_at = EXCLUDED.updated_at`

	now := time.Now().UTC()
	for _, row := range dayToEntries(mentorID, date, entries, now) {
		if _, err := tx.NamedExecContext(ctx, query, row); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("merge attendance entry: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit attendance tx: %w", err)
	}
	return nil
}

func entriesToRecord(rows []models.AttendanceEntry) attendance.Record {
	record := make(attendance.Record)
	for _, row := range rows {
		day, ok := record[row.Date]
		if !ok {
			day = make(attendance.Day)
			record[row.Date] = day
		}
		day[row.StudentID] = row.Present
	}
	return record
}

// dayToEntries orders rows by student id so writes lock in a stable order.
func dayToEntries(mentorID, date string, entries attendance.Day, now time.Time) []models.AttendanceEntry {
	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rows := make([]models.AttendanceEntry, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, models.AttendanceEntry{
			MentorID:  mentorID,
			Date:      date,
			StudentID: id,
			Present:   entries[id],
			UpdatedAt: now,
		})
	}
	return rows
}
