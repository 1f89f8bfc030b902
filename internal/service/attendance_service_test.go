package service

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/mentor-portal-api/internal/attendance"
	"github.com/noah-isme/mentor-portal-api/internal/dto"
	"github.com/noah-isme/mentor-portal-api/internal/models"
	appErrors "github.com/noah-isme/mentor-portal-api/pkg/errors"
)

type stubAttendanceStore struct {
	mu       sync.Mutex
	records  map[string]attendance.Record
	mergeErr error
	merges   int
}

func (s *stubAttendanceStore) GetMentorAttendance(ctx context.Context, mentorID string) (attendance.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[mentorID].Clone(), nil
}

func (s *stubAttendanceStore) MergeMentorAttendance(ctx context.Context, mentorID, date string, entries attendance.Day) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mergeErr != nil {
		return s.mergeErr
	}
	s.merges++
	if s.records == nil {
		s.records = make(map[string]attendance.Record)
	}
	s.records[mentorID] = attendance.Merge(s.records[mentorID], date, entries)
	return nil
}

type stubWindowStore struct {
	window *models.AttendanceWindow
	saved  []models.AttendanceWindow
}

func (s *stubWindowStore) GetWindow(ctx context.Context) (*models.AttendanceWindow, error) {
	if s.window == nil {
		return nil, nil
	}
	copy := *s.window
	return &copy, nil
}

func (s *stubWindowStore) SaveWindow(ctx context.Context, window models.AttendanceWindow) error {
	s.saved = append(s.saved, window)
	s.window = &window
	return nil
}

type stubDraftStore struct {
	mu     sync.Mutex
	drafts map[string]attendance.Day
}

func (s *stubDraftStore) Load(ctx context.Context, mentorID, date string) (attendance.Day, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drafts[mentorID+"|"+date].Clone(), nil
}

func (s *stubDraftStore) Stage(ctx context.Context, mentorID, date string, entries attendance.Day) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drafts == nil {
		s.drafts = make(map[string]attendance.Day)
	}
	key := mentorID + "|" + date
	day := s.drafts[key]
	if day == nil {
		day = attendance.Day{}
	}
	for id, present := range entries {
		day[id] = present
	}
	s.drafts[key] = day
	return nil
}

func (s *stubDraftStore) Clear(ctx context.Context, mentorID, date string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, mentorID+"|"+date)
	return nil
}

type attendanceFixture struct {
	svc     *AttendanceService
	store   *stubAttendanceStore
	windows *stubWindowStore
	drafts  *stubDraftStore
	users   *mockUserRepo
}

// newAttendanceFixture pins today to 2024-01-03 with a window of
// 2024-01-01..2024-01-31 and three students on mentor-1.
func newAttendanceFixture(t *testing.T) *attendanceFixture {
	t.Helper()
	users := newMockUserRepo(
		models.User{ID: "mentor-1", Role: models.RoleMentor, Status: models.StatusApproved, DisplayName: "Mentor"},
		models.User{ID: "s1", Role: models.RoleStudent, Status: models.StatusApproved, DisplayName: "Ana", Email: "ana@example.com", MentorID: strRef("mentor-1")},
		models.User{ID: "s2", Role: models.RoleStudent, Status: models.StatusApproved, DisplayName: "Budi", Email: "budi@example.com", MentorID: strRef("mentor-1")},
		models.User{ID: "s3", Role: models.RoleStudent, Status: models.StatusApproved, DisplayName: "Citra", Email: "citra@example.com", MentorID: strRef("mentor-1")},
		models.User{ID: "s4", Role: models.RoleStudent, Status: models.StatusApproved, DisplayName: "Dewi"},
	)
	store := &stubAttendanceStore{records: map[string]attendance.Record{}}
	windows := &stubWindowStore{window: &models.AttendanceWindow{StartDate: "2024-01-01", EndDate: "2024-01-31"}}
	drafts := &stubDraftStore{}

	svc := NewAttendanceService(store, windows, users, drafts, users, nil, nil, validator.New(), zap.NewNop(), AttendanceConfig{Location: time.UTC})
	svc.now = func() time.Time { return time.Date(2024, 1, 3, 9, 30, 0, 0, time.UTC) }

	return &attendanceFixture{svc: svc, store: store, windows: windows, drafts: drafts, users: users}
}

func TestAttendanceServiceStudentSummary(t *testing.T) {
	f := newAttendanceFixture(t)
	f.store.records["mentor-1"] = attendance.Record{
		"2024-01-01": {"s1": true, "s2": true},
		"2024-01-02": {"s1": false, "s2": true},
		"2024-01-03": {"s1": true},
	}

	resp, err := f.svc.StudentSummary(context.Background(), "s1")
	require.NoError(t, err)
	require.True(t, resp.Available)
	require.NotNil(t, resp.Percentage)
	assert.Equal(t, 67, *resp.Percentage)
	assert.Equal(t, 3, resp.TotalDays)
	assert.Equal(t, 2, resp.PresentDays)
	assert.Equal(t, attendance.BandWarning, resp.Band)
}

func TestAttendanceServiceStudentSummaryUnavailable(t *testing.T) {
	f := newAttendanceFixture(t)

	resp, err := f.svc.StudentSummary(context.Background(), "s4")
	require.NoError(t, err)
	assert.False(t, resp.Available)
	assert.Equal(t, dto.ReasonNotAssigned, resp.Reason)
	assert.Nil(t, resp.Percentage)

	f.windows.window = nil
	resp, err = f.svc.StudentSummary(context.Background(), "s1")
	require.NoError(t, err)
	assert.False(t, resp.Available)
	assert.Equal(t, dto.ReasonConfigMissing, resp.Reason)

	_, err = f.svc.StudentSummary(context.Background(), "mentor-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAttendanceServiceMentorOverview(t *testing.T) {
	f := newAttendanceFixture(t)
	f.store.records["mentor-1"] = attendance.Record{
		"2024-01-01": {"s1": true, "s2": false, "s3": true},
		"2024-01-02": {"s1": true, "s2": false, "s3": false},
	}

	resp, hit, err := f.svc.MentorOverview(context.Background(), "mentor-1")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "2024-01-03", resp.Date)
	assert.True(t, resp.Available)
	assert.Equal(t, attendance.StateUnmarked, resp.State)
	require.Len(t, resp.Students, 3)

	rows := map[string]dto.StudentAttendanceRow{}
	for _, row := range resp.Students {
		rows[row.StudentID] = row
	}
	assert.Equal(t, 100, *rows["s1"].Percentage)
	assert.Equal(t, 0, *rows["s2"].Percentage)
	assert.Equal(t, 50, *rows["s3"].Percentage)
	assert.True(t, rows["s2"].NeedsAttention)
	assert.Nil(t, rows["s1"].Today)

	assert.Equal(t, dto.OverviewSummary{Assigned: 3, NotMarked: 3, NeedsAttention: 2}, resp.Summary)
}

func TestAttendanceServiceMentorOverviewWithoutWindow(t *testing.T) {
	f := newAttendanceFixture(t)
	f.windows.window = nil

	resp, _, err := f.svc.MentorOverview(context.Background(), "mentor-1")
	require.NoError(t, err)
	assert.False(t, resp.Available)
	assert.Equal(t, dto.ReasonConfigMissing, resp.Reason)
	assert.Equal(t, attendance.StateNotWithinWindow, resp.State)
	for _, row := range resp.Students {
		assert.Nil(t, row.Percentage)
		assert.False(t, row.NeedsAttention)
	}
}

func TestAttendanceServiceStageAndSubmit(t *testing.T) {
	f := newAttendanceFixture(t)
	ctx := context.Background()

	state, err := f.svc.Stage(ctx, "mentor-1", "s1", true)
	require.NoError(t, err)
	assert.Equal(t, attendance.StateStaged, state)

	state, err = f.svc.Stage(ctx, "mentor-1", "s2", false)
	require.NoError(t, err)
	assert.Equal(t, attendance.StateStaged, state)

	// toggling again replaces the staged value
	_, err = f.svc.Stage(ctx, "mentor-1", "s2", true)
	require.NoError(t, err)
	assert.Zero(t, f.store.merges)

	resp, err := f.svc.Submit(ctx, "mentor-1", dto.SubmitAttendanceRequest{}, models.LoginRequest{IP: "10.0.0.1"})
	require.NoError(t, err)
	assert.Equal(t, "2024-01-03", resp.Date)
	assert.Equal(t, map[string]bool{"s1": true, "s2": true}, map[string]bool(resp.Entries))
	assert.Equal(t, attendance.StateSubmitted, resp.State)
	assert.Equal(t, map[string]int{"s1": 100, "s2": 100, "s3": 0}, resp.Percentages)
	assert.Equal(t, 1, f.store.merges)
	assert.Empty(t, f.drafts.drafts)

	require.Len(t, f.users.auditLogs, 1)
	assert.Equal(t, models.AuditActionAttendanceSubmit, f.users.auditLogs[0].Action)

	_, err = f.svc.Stage(ctx, "mentor-1", "s3", true)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadySubmitted.Code, appErrors.FromError(err).Code)

	_, err = f.svc.Submit(ctx, "mentor-1", dto.SubmitAttendanceRequest{Entries: map[string]bool{"s3": true}}, models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadySubmitted.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 1, f.store.merges)
}

func TestAttendanceServiceSubmitWithBodyEntries(t *testing.T) {
	f := newAttendanceFixture(t)

	resp, err := f.svc.Submit(context.Background(), "mentor-1", dto.SubmitAttendanceRequest{
		Entries: map[string]bool{"s1": true, "s3": false},
	}, models.LoginRequest{})
	require.NoError(t, err)
	assert.Len(t, resp.Entries, 2)

	record := f.store.records["mentor-1"]
	day, ok := record.Day("2024-01-03")
	require.True(t, ok)
	assert.Equal(t, attendance.Day{"s1": true, "s3": false}, day)
}

func TestAttendanceServiceSubmitNothingStaged(t *testing.T) {
	f := newAttendanceFixture(t)

	_, err := f.svc.Submit(context.Background(), "mentor-1", dto.SubmitAttendanceRequest{}, models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNothingStaged.Code, appErrors.FromError(err).Code)
	assert.Zero(t, f.store.merges)
}

func TestAttendanceServiceSubmitOutsideWindow(t *testing.T) {
	f := newAttendanceFixture(t)
	f.windows.window = &models.AttendanceWindow{StartDate: "2024-02-01", EndDate: "2024-02-28"}

	_, err := f.svc.Stage(context.Background(), "mentor-1", "s1", true)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrWindowClosed.Code, appErrors.FromError(err).Code)

	_, err = f.svc.Submit(context.Background(), "mentor-1", dto.SubmitAttendanceRequest{Entries: map[string]bool{"s1": true}}, models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrWindowClosed.Code, appErrors.FromError(err).Code)
	assert.Zero(t, f.store.merges)
	assert.Empty(t, f.store.records["mentor-1"])
	assert.Empty(t, f.drafts.drafts)

	f.windows.window = nil
	_, err = f.svc.Submit(context.Background(), "mentor-1", dto.SubmitAttendanceRequest{Entries: map[string]bool{"s1": true}}, models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConfigMissing.Code, appErrors.FromError(err).Code)
	assert.Zero(t, f.store.merges)
	assert.Empty(t, f.store.records["mentor-1"])
}

func TestAttendanceServiceRejectsUnassignedStudent(t *testing.T) {
	f := newAttendanceFixture(t)

	_, err := f.svc.Stage(context.Background(), "mentor-1", "s4", true)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotAssigned.Code, appErrors.FromError(err).Code)

	_, err = f.svc.Submit(context.Background(), "mentor-1", dto.SubmitAttendanceRequest{Entries: map[string]bool{"s4": true}}, models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotAssigned.Code, appErrors.FromError(err).Code)
}

func TestAttendanceServiceSubmitPersistenceFailureKeepsDraft(t *testing.T) {
	f := newAttendanceFixture(t)
	ctx := context.Background()
	f.store.mergeErr = errors.New("connection reset")

	_, err := f.svc.Stage(ctx, "mentor-1", "s1", true)
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, "mentor-1", dto.SubmitAttendanceRequest{}, models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPersistenceFailure.Code, appErrors.FromError(err).Code)

	draft, _ := f.drafts.Load(ctx, "mentor-1", "2024-01-03")
	assert.Equal(t, attendance.Day{"s1": true}, draft)

	f.store.mergeErr = nil
	resp, err := f.svc.Submit(ctx, "mentor-1", dto.SubmitAttendanceRequest{}, models.LoginRequest{})
	require.NoError(t, err)
	assert.Equal(t, attendance.StateSubmitted, resp.State)
}

func TestAttendanceServiceDay(t *testing.T) {
	f := newAttendanceFixture(t)
	ctx := context.Background()
	f.store.records["mentor-1"] = attendance.Record{"2024-01-02": {"s1": true}}

	past, err := f.svc.Day(ctx, "mentor-1", "2024-01-02")
	require.NoError(t, err)
	assert.True(t, past.Taken)
	assert.False(t, past.Editable)
	require.Len(t, past.Entries, 3)
	for _, entry := range past.Entries {
		require.NotNil(t, entry.Present)
		assert.Equal(t, entry.StudentID == "s1", *entry.Present)
	}

	_, err = f.svc.Stage(ctx, "mentor-1", "s2", true)
	require.NoError(t, err)

	today, err := f.svc.Day(ctx, "mentor-1", "2024-01-03")
	require.NoError(t, err)
	assert.False(t, today.Taken)
	assert.True(t, today.Editable)
	assert.Equal(t, attendance.StateStaged, today.State)
	for _, entry := range today.Entries {
		assert.Nil(t, entry.Present)
		if entry.StudentID == "s2" {
			require.NotNil(t, entry.Staged)
			assert.True(t, *entry.Staged)
		}
	}

	_, err = f.svc.Day(ctx, "mentor-1", "03/01/2024")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAttendanceServiceSetWindow(t *testing.T) {
	f := newAttendanceFixture(t)

	resp, err := f.svc.SetWindow(context.Background(), dto.AttendanceWindowRequest{StartDate: "2024-01-02", EndDate: "2024-01-02"}, "admin-1", models.LoginRequest{})
	require.NoError(t, err)
	assert.Equal(t, "2024-01-02", resp.StartDate)
	assert.False(t, resp.OpenToday)
	require.Len(t, f.windows.saved, 1)
	require.NotNil(t, f.windows.saved[0].UpdatedBy)
	assert.Equal(t, "admin-1", *f.windows.saved[0].UpdatedBy)
	assert.Equal(t, models.AuditActionWindowUpdate, f.users.auditLogs[0].Action)

	_, err = f.svc.SetWindow(context.Background(), dto.AttendanceWindowRequest{StartDate: "2024-02-01", EndDate: "2024-01-01"}, "admin-1", models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = f.svc.SetWindow(context.Background(), dto.AttendanceWindowRequest{StartDate: "2024-02-01"}, "admin-1", models.LoginRequest{})
	require.Error(t, err)
	assert.Len(t, f.windows.saved, 1)
}

func TestAttendanceServiceWindowChangeRecomputes(t *testing.T) {
	f := newAttendanceFixture(t)
	f.store.records["mentor-1"] = attendance.Record{
		"2024-01-01": {"s1": false},
		"2024-01-02": {"s1": true},
	}

	resp, err := f.svc.StudentSummary(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 50, *resp.Percentage)

	_, err = f.svc.SetWindow(context.Background(), dto.AttendanceWindowRequest{StartDate: "2024-01-02", EndDate: "2024-01-31"}, "admin-1", models.LoginRequest{})
	require.NoError(t, err)

	resp, err = f.svc.StudentSummary(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 100, *resp.Percentage)
}

func TestAttendanceServiceGetWindowMissing(t *testing.T) {
	f := newAttendanceFixture(t)
	f.windows.window = nil

	_, err := f.svc.GetWindow(context.Background())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConfigMissing.Code, appErrors.FromError(err).Code)
}

func TestAttendanceServiceCalendar(t *testing.T) {
	f := newAttendanceFixture(t)
	f.store.records["mentor-1"] = attendance.Record{
		"2024-01-01": {"s1": true, "s2": true, "s3": true},
		"2024-01-02": {"s1": false, "s2": true, "s3": false},
	}

	resp, err := f.svc.Calendar(context.Background(), "mentor-1", "")
	require.NoError(t, err)
	assert.Equal(t, "2024-01", resp.Month)
	require.Len(t, resp.Days, 31)
	assert.Equal(t, attendance.DayAllPresent, resp.Days[0].Status)
	assert.Equal(t, attendance.DaySomePresent, resp.Days[1].Status)
	assert.Equal(t, attendance.DayOpen, resp.Days[2].Status)
	assert.Equal(t, attendance.DayFutureInRange, resp.Days[3].Status)

	dec, err := f.svc.Calendar(context.Background(), "mentor-1", "2023-12")
	require.NoError(t, err)
	assert.Equal(t, attendance.DayDisabled, dec.Days[0].Status)

	_, err = f.svc.Calendar(context.Background(), "mentor-1", "December")
	require.Error(t, err)
}

func TestAttendanceServiceReport(t *testing.T) {
	f := newAttendanceFixture(t)
	f.store.records["mentor-1"] = attendance.Record{"2024-01-02": {"s1": true}}

	data, contentType, err := f.svc.Report(context.Background(), "mentor-1", "")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)
	assert.True(t, bytes.HasPrefix(data, []byte("Student,Email,Present Days,Total Days,Percentage,Band")))
	assert.Contains(t, string(data), "Ana,ana@example.com,1,1,100%,good")

	pdf, contentType, err := f.svc.Report(context.Background(), "mentor-1", "PDF")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))

	_, _, err = f.svc.Report(context.Background(), "mentor-1", "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
