package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/mentor-portal-api/internal/attendance"
	"github.com/noah-isme/mentor-portal-api/internal/dto"
	"github.com/noah-isme/mentor-portal-api/internal/models"
	appErrors "github.com/noah-isme/mentor-portal-api/pkg/errors"
	"github.com/noah-isme/mentor-portal-api/pkg/export"
)

// AttendanceStore persists each mentor's attendance record.
type AttendanceStore interface {
	GetMentorAttendance(ctx context.Context, mentorID string) (attendance.Record, error)
	MergeMentorAttendance(ctx context.Context, mentorID, date string, entries attendance.Day) error
}

// WindowStore persists the attendance window.
type WindowStore interface {
	GetWindow(ctx context.Context) (*models.AttendanceWindow, error)
	SaveWindow(ctx context.Context, window models.AttendanceWindow) error
}

type studentDirectory interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	ListStudentsByMentor(ctx context.Context, mentorID string) ([]models.StudentRef, error)
}

type draftStore interface {
	Load(ctx context.Context, mentorID, date string) (attendance.Day, error)
	Stage(ctx context.Context, mentorID, date string, entries attendance.Day) error
	Clear(ctx context.Context, mentorID, date string) error
}

type auditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// Report formats supported by AttendanceService.Report.
const (
	ReportFormatCSV = "csv"
	ReportFormatPDF = "pdf"
)

// AttendanceConfig tunes the attendance service.
type AttendanceConfig struct {
	Location           *time.Location
	CacheTTL           time.Duration
	AttentionThreshold int
}

// AttendanceService exposes the window, the mentor marking flow and the
// derived percentages.
type AttendanceService struct {
	store     AttendanceStore
	windows   WindowStore
	directory studentDirectory
	drafts    draftStore
	audit     auditRecorder
	cache     *CacheService
	metrics   *MetricsService
	csv       csvRenderer
	pdf       pdfRenderer
	validator *validator.Validate
	logger    *zap.Logger
	cfg       AttendanceConfig
	now       func() time.Time
}

// NewAttendanceService wires the attendance service. cache and metrics may be nil.
func NewAttendanceService(
	store AttendanceStore,
	windows WindowStore,
	directory studentDirectory,
	drafts draftStore,
	audit auditRecorder,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg AttendanceConfig,
) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 2 * time.Minute
	}
	if cfg.AttentionThreshold <= 0 {
		cfg.AttentionThreshold = attendance.DefaultAttentionThreshold
	}
	return &AttendanceService{
		store:     store,
		windows:   windows,
		directory: directory,
		drafts:    drafts,
		audit:     audit,
		cache:     cache,
		metrics:   metrics,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

func overviewCacheKey(mentorID, date string) string {
	return fmt.Sprintf("attendance:overview:%s:%s", mentorID, date)
}

func overviewCachePattern(mentorID string) string {
	return fmt.Sprintf("attendance:overview:%s:*", mentorID)
}

func (s *AttendanceService) today() time.Time {
	return attendance.StartOfDay(s.now().In(s.cfg.Location))
}

// GetWindow returns the configured attendance window.
func (s *AttendanceService) GetWindow(ctx context.Context) (*dto.AttendanceWindowResponse, error) {
	window, err := s.loadWindow(ctx)
	if err != nil {
		return nil, err
	}
	if window == nil {
		return nil, appErrors.ErrConfigMissing
	}
	return s.windowResponse(window), nil
}

// SetWindow replaces the attendance window. Existing records are untouched;
// percentages follow the new window on the next read.
func (s *AttendanceService) SetWindow(ctx context.Context, req dto.AttendanceWindowRequest, actorID string, meta models.LoginRequest) (*dto.AttendanceWindowResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance window payload")
	}
	start, err := attendance.ParseDate(req.StartDate, s.cfg.Location)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid start date")
	}
	end, err := attendance.ParseDate(req.EndDate, s.cfg.Location)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid end date")
	}
	window := attendance.NewWindow(start, end)
	if !window.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start date must not be after end date")
	}

	previous, err := s.windows.GetWindow(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance window")
	}

	now := s.now().UTC()
	record := models.AttendanceWindow{
		StartDate: attendance.DateKey(window.Start),
		EndDate:   attendance.DateKey(window.End),
		UpdatedBy: &actorID,
		UpdatedAt: &now,
	}
	if err := s.windows.SaveWindow(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save attendance window")
	}

	if s.cache.Enabled() {
		_ = s.cache.Invalidate(ctx, "attendance:overview:*")
	}

	var oldPayload []byte
	if previous != nil {
		oldPayload, _ = json.Marshal(previous)
	}
	newPayload, _ := json.Marshal(record)
	s.recordAudit(ctx, &models.AuditLog{
		UserID:    &actorID,
		Action:    models.AuditActionWindowUpdate,
		Resource:  models.AuditResourceAttendanceWindow,
		OldValues: oldPayload,
		NewValues: newPayload,
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
	})

	s.logger.Info("attendance window updated",
		zap.String("start", record.StartDate),
		zap.String("end", record.EndDate),
		zap.String("actor", actorID),
	)
	return s.windowResponse(&window), nil
}

// MentorOverview lists the mentor's students with their percentages and
// today's marks. The bool result reports a cache hit.
func (s *AttendanceService) MentorOverview(ctx context.Context, mentorID string) (*dto.MentorOverviewResponse, bool, error) {
	today := s.today()
	key := overviewCacheKey(mentorID, attendance.DateKey(today))

	var cached dto.MentorOverviewResponse
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, true, nil
	}

	snap, err := s.loadMentorSnapshot(ctx, mentorID, true)
	if err != nil {
		return nil, false, err
	}

	session := attendance.NewSession(snap.record, snap.window, today, snap.draft)
	todayKey := session.Today()
	todayEntries, taken := snap.record.Day(todayKey)

	resp := &dto.MentorOverviewResponse{
		MentorID:  mentorID,
		Date:      todayKey,
		Available: snap.window != nil,
		State:     session.State(),
		Students:  make([]dto.StudentAttendanceRow, 0, len(snap.students)),
	}
	if snap.window != nil {
		resp.Window = s.windowResponse(snap.window)
	} else {
		resp.Reason = dto.ReasonConfigMissing
	}

	for _, student := range snap.students {
		row := dto.StudentAttendanceRow{
			StudentID:   student.ID,
			DisplayName: student.DisplayName,
			Email:       student.Email,
		}
		if snap.window != nil {
			tally := attendance.Count(student.ID, snap.record, *snap.window, today)
			pct := tally.Percentage
			row.Percentage = &pct
			row.TotalDays = tally.TotalDays
			row.PresentDays = tally.PresentDays
			row.Band = attendance.BandFor(pct)
			row.NeedsAttention = tally.TotalDays > 0 && attendance.NeedsAttention(pct, s.cfg.AttentionThreshold)
		}

		resp.Summary.Assigned++
		if row.NeedsAttention {
			resp.Summary.NeedsAttention++
		}
		if taken {
			present := todayEntries[student.ID]
			row.Today = &present
			if present {
				resp.Summary.PresentToday++
			} else {
				resp.Summary.AbsentToday++
			}
		} else {
			resp.Summary.NotMarked++
		}
		resp.Students = append(resp.Students, row)
	}

	_ = s.cache.Set(ctx, key, resp, s.cfg.CacheTTL)
	return resp, false, nil
}

// StudentSummary returns a student's own percentage, computed over their
// mentor's record. Missing assignment or window is reported, not failed.
func (s *AttendanceService) StudentSummary(ctx context.Context, studentID string) (*dto.StudentAttendanceResponse, error) {
	student, err := s.directory.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "attendance summary is only available to students")
	}

	resp := &dto.StudentAttendanceResponse{StudentID: studentID, MentorID: student.MentorID}
	if student.MentorID == nil || *student.MentorID == "" {
		resp.Reason = dto.ReasonNotAssigned
		return resp, nil
	}

	var (
		window *attendance.Window
		record attendance.Record
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		w, err := s.loadWindow(gctx)
		window = w
		return err
	})
	g.Go(func() error {
		r, err := s.loadRecord(gctx, *student.MentorID)
		record = r
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if window == nil {
		resp.Reason = dto.ReasonConfigMissing
		return resp, nil
	}

	tally := attendance.Count(studentID, record, *window, s.today())
	resp.Available = true
	resp.Percentage = &tally.Percentage
	resp.TotalDays = tally.TotalDays
	resp.PresentDays = tally.PresentDays
	resp.Band = attendance.BandFor(tally.Percentage)
	resp.Window = s.windowResponse(window)
	return resp, nil
}

// Day returns the mentor's marks for a date. For today the staged toggles
// are included and Editable reports whether a submit is still possible.
func (s *AttendanceService) Day(ctx context.Context, mentorID, rawDate string) (*dto.DayResponse, error) {
	day, err := attendance.ParseDate(rawDate, s.cfg.Location)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid date")
	}
	today := s.today()
	isToday := attendance.SameDay(today, day)

	snap, err := s.loadMentorSnapshot(ctx, mentorID, isToday)
	if err != nil {
		return nil, err
	}

	key := attendance.DateKey(day)
	recorded, taken := snap.record.Day(key)
	resp := &dto.DayResponse{
		Date:    key,
		Taken:   taken,
		Entries: make([]dto.DayEntry, 0, len(snap.students)),
	}
	var staged attendance.Day
	if isToday {
		session := attendance.NewSession(snap.record, snap.window, today, snap.draft)
		resp.State = session.State()
		resp.Editable = resp.State == attendance.StateUnmarked || resp.State == attendance.StateStaged
		staged = session.Pending()
	}

	for _, student := range snap.students {
		entry := dto.DayEntry{StudentID: student.ID, DisplayName: student.DisplayName}
		if taken {
			present := recorded[student.ID]
			entry.Present = &present
		}
		if toggle, ok := staged[student.ID]; ok && !taken {
			entry.Staged = &toggle
		}
		resp.Entries = append(resp.Entries, entry)
	}
	return resp, nil
}

// Stage toggles one assigned student for today without persisting to the
// record.
func (s *AttendanceService) Stage(ctx context.Context, mentorID, studentID string, present bool) (attendance.State, error) {
	if err := s.ensureAssigned(ctx, mentorID, studentID); err != nil {
		return "", err
	}

	today := s.today()
	snap, err := s.loadMentorSnapshot(ctx, mentorID, true)
	if err != nil {
		return "", err
	}

	session := attendance.NewSession(snap.record, snap.window, today, snap.draft)
	if err := session.Stage(studentID, present); err != nil {
		return "", sessionError(err)
	}
	if err := s.drafts.Stage(ctx, mentorID, session.Today(), attendance.Day{studentID: present}); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stage attendance")
	}
	s.invalidateOverview(ctx, mentorID)
	return session.State(), nil
}

// Submit stages any toggles in req, then merges all staged toggles into
// today's entry in a single write. A failed write keeps the draft so the
// mentor can retry.
func (s *AttendanceService) Submit(ctx context.Context, mentorID string, req dto.SubmitAttendanceRequest, meta models.LoginRequest) (*dto.SubmitAttendanceResponse, error) {
	today := s.today()
	snap, err := s.loadMentorSnapshot(ctx, mentorID, true)
	if err != nil {
		return nil, err
	}

	assigned := make(map[string]struct{}, len(snap.students))
	for _, student := range snap.students {
		assigned[student.ID] = struct{}{}
	}

	session := attendance.NewSession(snap.record, snap.window, today, snap.draft)
	if len(req.Entries) > 0 {
		for _, id := range sortedIDs(req.Entries) {
			if _, ok := assigned[id]; !ok {
				return nil, appErrors.Clone(appErrors.ErrNotAssigned, fmt.Sprintf("student %s is not assigned to this mentor", id))
			}
			if err := session.Stage(id, req.Entries[id]); err != nil {
				return nil, sessionError(err)
			}
		}
		if err := s.drafts.Stage(ctx, mentorID, session.Today(), attendance.Day(req.Entries)); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stage attendance")
		}
	}

	key, entries, err := session.Submit()
	if err != nil {
		s.metrics.RecordAttendanceSubmit(submitOutcome(err))
		return nil, sessionError(err)
	}

	if err := s.store.MergeMentorAttendance(ctx, mentorID, key, entries); err != nil {
		s.metrics.RecordAttendanceSubmit("persistence_failure")
		s.logger.Error("attendance submit failed",
			zap.String("mentor_id", mentorID),
			zap.String("date", key),
			zap.Int("entries", len(entries)),
			zap.Error(err),
		)
		return nil, appErrors.Wrap(err, appErrors.ErrPersistenceFailure.Code, appErrors.ErrPersistenceFailure.Status, appErrors.ErrPersistenceFailure.Message)
	}
	session.Committed()
	s.metrics.RecordAttendanceSubmit("ok")

	if err := s.drafts.Clear(ctx, mentorID, key); err != nil {
		s.logger.Warn("failed to clear attendance draft", zap.String("mentor_id", mentorID), zap.Error(err))
	}
	s.invalidateOverview(ctx, mentorID)

	payload, _ := json.Marshal(map[string]interface{}{"date": key, "entries": entries})
	s.recordAudit(ctx, &models.AuditLog{
		UserID:     &mentorID,
		Action:     models.AuditActionAttendanceSubmit,
		Resource:   models.AuditResourceAttendance,
		ResourceID: &key,
		NewValues:  payload,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	})

	percentages := make(map[string]int, len(snap.students))
	for _, student := range snap.students {
		percentages[student.ID] = attendance.Count(student.ID, session.Record(), *snap.window, today).Percentage
	}

	return &dto.SubmitAttendanceResponse{Date: key, Entries: entries, State: session.State(), Percentages: percentages}, nil
}

// Calendar renders the month given as YYYY-MM, or the current month when
// empty.
func (s *AttendanceService) Calendar(ctx context.Context, mentorID, month string) (*dto.CalendarResponse, error) {
	today := s.today()
	anchor := today
	if strings.TrimSpace(month) != "" {
		parsed, err := time.ParseInLocation("2006-01", strings.TrimSpace(month), s.cfg.Location)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "month must be formatted YYYY-MM")
		}
		anchor = parsed
	}

	snap, err := s.loadMentorSnapshot(ctx, mentorID, false)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(snap.students))
	for _, student := range snap.students {
		ids = append(ids, student.ID)
	}

	return &dto.CalendarResponse{
		Month: anchor.Format("2006-01"),
		Days:  attendance.Month(anchor, snap.record, snap.window, ids, today),
	}, nil
}

// Report renders the mentor overview as a downloadable file and returns the
// bytes with their content type.
func (s *AttendanceService) Report(ctx context.Context, mentorID, format string) ([]byte, string, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ReportFormatCSV
	}
	if format != ReportFormatCSV && format != ReportFormatPDF {
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	overview, _, err := s.MentorOverview(ctx, mentorID)
	if err != nil {
		return nil, "", err
	}

	dataset := export.Dataset{
		Headers: []string{"Student", "Email", "Present Days", "Total Days", "Percentage", "Band"},
		Notes:   []string{"Generated: " + overview.Date},
	}
	if w := overview.Window; w != nil && w.Configured {
		dataset.Notes = append(dataset.Notes, "Window: "+w.StartDate+" to "+w.EndDate)
	} else {
		dataset.Notes = append(dataset.Notes, "Window: not configured")
	}
	for _, row := range overview.Students {
		pct := "-"
		if row.Percentage != nil {
			pct = strconv.Itoa(*row.Percentage) + "%"
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Student":      row.DisplayName,
			"Email":        row.Email,
			"Present Days": strconv.Itoa(row.PresentDays),
			"Total Days":   strconv.Itoa(row.TotalDays),
			"Percentage":   pct,
			"Band":         string(row.Band),
		})
	}

	switch format {
	case ReportFormatPDF:
		data, err := s.pdf.Render(dataset, "Attendance Report "+overview.Date)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
		}
		return data, "application/pdf", nil
	default:
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
		}
		return data, "text/csv", nil
	}
}

type mentorSnapshot struct {
	window   *attendance.Window
	record   attendance.Record
	students []models.StudentRef
	draft    attendance.Day
}

// loadMentorSnapshot reads the window, the mentor's record, their students
// and optionally today's draft concurrently.
func (s *AttendanceService) loadMentorSnapshot(ctx context.Context, mentorID string, withDraft bool) (*mentorSnapshot, error) {
	snap := &mentorSnapshot{draft: attendance.Day{}}
	todayKey := attendance.DateKey(s.today())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		w, err := s.loadWindow(gctx)
		snap.window = w
		return err
	})
	g.Go(func() error {
		r, err := s.loadRecord(gctx, mentorID)
		snap.record = r
		return err
	})
	g.Go(func() error {
		students, err := s.directory.ListStudentsByMentor(gctx, mentorID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
		}
		snap.students = students
		return nil
	})
	if withDraft {
		g.Go(func() error {
			draft, err := s.drafts.Load(gctx, mentorID, todayKey)
			if err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance draft")
			}
			if draft != nil {
				snap.draft = draft
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if snap.students == nil {
		snap.students = []models.StudentRef{}
	}
	return snap, nil
}

func (s *AttendanceService) loadWindow(ctx context.Context) (*attendance.Window, error) {
	stored, err := s.windows.GetWindow(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance window")
	}
	if stored == nil {
		return nil, nil
	}
	start, err := attendance.ParseDate(stored.StartDate, s.cfg.Location)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored attendance window is invalid")
	}
	end, err := attendance.ParseDate(stored.EndDate, s.cfg.Location)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored attendance window is invalid")
	}
	window := attendance.NewWindow(start, end)
	return &window, nil
}

func (s *AttendanceService) loadRecord(ctx context.Context, mentorID string) (attendance.Record, error) {
	record, err := s.store.GetMentorAttendance(ctx, mentorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance record")
	}
	if record == nil {
		record = attendance.Record{}
	}
	return record, nil
}

func (s *AttendanceService) ensureAssigned(ctx context.Context, mentorID, studentID string) error {
	student, err := s.directory.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if !student.AssignedTo(mentorID) {
		return appErrors.Clone(appErrors.ErrNotAssigned, "student is not assigned to this mentor")
	}
	return nil
}

func (s *AttendanceService) windowResponse(window *attendance.Window) *dto.AttendanceWindowResponse {
	return &dto.AttendanceWindowResponse{
		StartDate:  attendance.DateKey(window.Start),
		EndDate:    attendance.DateKey(window.End),
		OpenToday:  window.Contains(s.today()),
		Configured: true,
	}
}

func (s *AttendanceService) invalidateOverview(ctx context.Context, mentorID string) {
	if !s.cache.Enabled() {
		return
	}
	_ = s.cache.Invalidate(ctx, overviewCachePattern(mentorID))
}

func (s *AttendanceService) recordAudit(ctx context.Context, log *models.AuditLog) {
	if s.audit == nil {
		return
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", log.Action), zap.Error(err))
	}
}

func sessionError(err error) error {
	switch {
	case errors.Is(err, attendance.ErrConfigMissing):
		return appErrors.ErrConfigMissing
	case errors.Is(err, attendance.ErrWindowClosed):
		return appErrors.ErrWindowClosed
	case errors.Is(err, attendance.ErrAlreadySubmitted):
		return appErrors.ErrAlreadySubmitted
	case errors.Is(err, attendance.ErrNothingStaged):
		return appErrors.ErrNothingStaged
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "attendance session failed")
	}
}

func submitOutcome(err error) string {
	switch {
	case errors.Is(err, attendance.ErrNothingStaged):
		return "nothing_staged"
	case errors.Is(err, attendance.ErrAlreadySubmitted):
		return "already_submitted"
	case errors.Is(err, attendance.ErrWindowClosed):
		return "window_closed"
	case errors.Is(err, attendance.ErrConfigMissing):
		return "config_missing"
	default:
		return "error"
	}
}

func sortedIDs(entries map[string]bool) []string {
	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
