package repository

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/noah-isme/mentor-portal-api/internal/attendance"
	"github.com/noah-isme/mentor-portal-api/internal/models"
)

const (
	firestoreSettingsCollection = "settings"
	firestoreWindowDoc          = "attendance"
)

// FirestoreAttendanceRepository keeps one document per mentor in the
// attendance collection, shaped {date: {studentId: present}}, and the window
// in settings/attendance.
type FirestoreAttendanceRepository struct {
	client     *firestore.Client
	collection string
	loc        *time.Location
}

// NewFirestoreAttendanceRepository constructs the repository.
func NewFirestoreAttendanceRepository(client *firestore.Client, collection string, loc *time.Location) *FirestoreAttendanceRepository {
	if collection == "" {
		collection = "attendance"
	}
	if loc == nil {
		loc = time.Local
	}
	return &FirestoreAttendanceRepository{client: client, collection: collection, loc: loc}
}

// GetMentorAttendance reads the mentor document. A missing document is an
// empty record.
func (r *FirestoreAttendanceRepository) GetMentorAttendance(ctx context.Context, mentorID string) (attendance.Record, error) {
	snap, err := r.client.Collection(r.collection).Doc(mentorID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return attendance.Record{}, nil
		}
		return nil, fmt.Errorf("firestore get attendance %s: %w", mentorID, err)
	}
	return decodeFirestoreRecord(snap.Data()), nil
}

// MergeMentorAttendance writes the entries under the date field with
// MergeAll, so students already recorded for that date are kept.
func (r *FirestoreAttendanceRepository) MergeMentorAttendance(ctx context.Context, mentorID, date string, entries attendance.Day) error {
	if len(entries) == 0 {
		return nil
	}
	day := make(map[string]interface{}, len(entries))
	for id, present := range entries {
		day[id] = present
	}
	payload := map[string]interface{}{date: day}
	if _, err := r.client.Collection(r.collection).Doc(mentorID).Set(ctx, payload, firestore.MergeAll); err != nil {
		return fmt.Errorf("firestore merge attendance %s: %w", mentorID, err)
	}
	return nil
}

// GetWindow reads settings/attendance. Nil means not configured.
func (r *FirestoreAttendanceRepository) GetWindow(ctx context.Context) (*models.AttendanceWindow, error) {
	snap, err := r.client.Collection(firestoreSettingsCollection).Doc(firestoreWindowDoc).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("firestore get attendance window: %w", err)
	}
	return decodeFirestoreWindow(snap.Data(), r.loc), nil
}

// SaveWindow overwrites settings/attendance wholesale.
func (r *FirestoreAttendanceRepository) SaveWindow(ctx context.Context, window models.AttendanceWindow) error {
	start, err := attendance.ParseDate(window.StartDate, r.loc)
	if err != nil {
		return err
	}
	end, err := attendance.ParseDate(window.EndDate, r.loc)
	if err != nil {
		return err
	}
	doc := map[string]interface{}{
		"startDate": start,
		"endDate":   end,
		"updatedAt": time.Now().UTC(),
	}
	if window.UpdatedBy != nil {
		doc["updatedBy"] = *window.UpdatedBy
	}
	if _, err := r.client.Collection(firestoreSettingsCollection).Doc(firestoreWindowDoc).Set(ctx, doc); err != nil {
		return fmt.Errorf("firestore save attendance window: %w", err)
	}
	return nil
}

func decodeFirestoreRecord(data map[string]interface{}) attendance.Record {
	record := make(attendance.Record, len(data))
	for key, raw := range data {
		fields, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		day := make(attendance.Day, len(fields))
		for id, value := range fields {
			if present, ok := value.(bool); ok {
				day[id] = present
			}
		}
		record[key] = day
	}
	return record
}

func decodeFirestoreWindow(data map[string]interface{}, loc *time.Location) *models.AttendanceWindow {
	start, okStart := firestoreDate(data["startDate"], loc)
	end, okEnd := firestoreDate(data["endDate"], loc)
	if !okStart || !okEnd {
		return nil
	}
	window := &models.AttendanceWindow{StartDate: start, EndDate: end}
	if by, ok := data["updatedBy"].(string); ok && by != "" {
		window.UpdatedBy = &by
	}
	if at, ok := data["updatedAt"].(time.Time); ok {
		window.UpdatedAt = &at
	}
	return window
}

// firestoreDate accepts either a timestamp or a YYYY-MM-DD string.
func firestoreDate(raw interface{}, loc *time.Location) (string, bool) {
	switch v := raw.(type) {
	case time.Time:
		return attendance.DateKey(v.In(loc)), true
	case string:
		t, err := attendance.ParseDate(v, loc)
		if err != nil {
			return "", false
		}
		return attendance.DateKey(t), true
	default:
		return "", false
	}
}
