package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mentor-portal-api/internal/attendance"
	"github.com/noah-isme/mentor-portal-api/internal/dto"
	"github.com/noah-isme/mentor-portal-api/internal/middleware"
	"github.com/noah-isme/mentor-portal-api/internal/models"
	appErrors "github.com/noah-isme/mentor-portal-api/pkg/errors"
)

type attendanceServiceMock struct {
	window    *dto.AttendanceWindowResponse
	windowErr error
	overview  *dto.MentorOverviewResponse
	cacheHit  bool
	staged    map[string]bool
	stageErr  error
	submitReq *dto.SubmitAttendanceRequest
	submitErr error
	report    []byte
	reportCT  string
}

func (m *attendanceServiceMock) GetWindow(ctx context.Context) (*dto.AttendanceWindowResponse, error) {
	return m.window, m.windowErr
}

func (m *attendanceServiceMock) SetWindow(ctx context.Context, req dto.AttendanceWindowRequest, actorID string, meta models.LoginRequest) (*dto.AttendanceWindowResponse, error) {
	return &dto.AttendanceWindowResponse{StartDate: req.StartDate, EndDate: req.EndDate, Configured: true}, nil
}

func (m *attendanceServiceMock) MentorOverview(ctx context.Context, mentorID string) (*dto.MentorOverviewResponse, bool, error) {
	return m.overview, m.cacheHit, nil
}

func (m *attendanceServiceMock) StudentSummary(ctx context.Context, studentID string) (*dto.StudentAttendanceResponse, error) {
	return &dto.StudentAttendanceResponse{StudentID: studentID}, nil
}

func (m *attendanceServiceMock) Day(ctx context.Context, mentorID, rawDate string) (*dto.DayResponse, error) {
	return &dto.DayResponse{Date: rawDate}, nil
}

func (m *attendanceServiceMock) Stage(ctx context.Context, mentorID, studentID string, present bool) (attendance.State, error) {
	if m.stageErr != nil {
		return "", m.stageErr
	}
	if m.staged == nil {
		m.staged = map[string]bool{}
	}
	m.staged[studentID] = present
	return attendance.StateStaged, nil
}

func (m *attendanceServiceMock) Submit(ctx context.Context, mentorID string, req dto.SubmitAttendanceRequest, meta models.LoginRequest) (*dto.SubmitAttendanceResponse, error) {
	m.submitReq = &req
	if m.submitErr != nil {
		return nil, m.submitErr
	}
	return &dto.SubmitAttendanceResponse{Date: "2024-01-03", Entries: req.Entries, State: attendance.StateSubmitted}, nil
}

func (m *attendanceServiceMock) Calendar(ctx context.Context, mentorID, month string) (*dto.CalendarResponse, error) {
	return &dto.CalendarResponse{Month: month}, nil
}

func (m *attendanceServiceMock) Report(ctx context.Context, mentorID, format string) ([]byte, string, error) {
	if format != "csv" && format != "pdf" {
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "unsupported report format")
	}
	return m.report, m.reportCT, nil
}

func newAttendanceContext(method, target string, body []byte) (*httptest.ResponseRecorder, *gin.Context) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var req *http.Request
	if body != nil {
		req, _ = http.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, target, nil)
	}
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "mentor-1", Role: models.RoleMentor})
	return w, c
}

func TestAttendanceHandlerGetWindowMissing(t *testing.T) {
	svc := &attendanceServiceMock{windowErr: appErrors.Clone(appErrors.ErrNotFound, "attendance window is not configured")}
	handler := NewAttendanceHandler(svc)
	w, c := newAttendanceContext(http.MethodGet, "/attendance/window", nil)

	handler.GetWindow(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAttendanceHandlerSetWindowInvalidBody(t *testing.T) {
	handler := NewAttendanceHandler(&attendanceServiceMock{})
	w, c := newAttendanceContext(http.MethodPut, "/attendance/window", []byte(`{"startDate":`))

	handler.SetWindow(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAttendanceHandlerOverviewCacheMeta(t *testing.T) {
	svc := &attendanceServiceMock{overview: &dto.MentorOverviewResponse{MentorID: "mentor-1", Date: "2024-01-03"}, cacheHit: true}
	handler := NewAttendanceHandler(svc)
	w, c := newAttendanceContext(http.MethodGet, "/attendance/overview", nil)
	c.Set("response_meta", map[string]interface{}{})

	handler.Overview(c)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data dto.MentorOverviewResponse `json:"data"`
		Meta map[string]interface{}     `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "2024-01-03", body.Data.Date)
	assert.Equal(t, true, body.Meta["cache_hit"])
}

func TestAttendanceHandlerStageRequiresPresent(t *testing.T) {
	svc := &attendanceServiceMock{}
	handler := NewAttendanceHandler(svc)
	w, c := newAttendanceContext(http.MethodPut, "/attendance/today/s1", []byte(`{}`))
	c.Params = gin.Params{{Key: "studentId", Value: "s1"}}

	handler.Stage(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, svc.staged)

	w, c = newAttendanceContext(http.MethodPut, "/attendance/today/s1", []byte(`{"present":false}`))
	c.Params = gin.Params{{Key: "studentId", Value: "s1"}}
	handler.Stage(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]bool{"s1": false}, svc.staged)
}

func TestAttendanceHandlerStageConflict(t *testing.T) {
	svc := &attendanceServiceMock{stageErr: appErrors.Clone(appErrors.ErrConflict, "attendance already submitted for today")}
	handler := NewAttendanceHandler(svc)
	w, c := newAttendanceContext(http.MethodPut, "/attendance/today/s1", []byte(`{"present":true}`))
	c.Params = gin.Params{{Key: "studentId", Value: "s1"}}

	handler.Stage(c)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAttendanceHandlerSubmit(t *testing.T) {
	svc := &attendanceServiceMock{}
	handler := NewAttendanceHandler(svc)

	w, c := newAttendanceContext(http.MethodPost, "/attendance/today/submit", nil)
	handler.Submit(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.submitReq)
	assert.Empty(t, svc.submitReq.Entries)

	w, c = newAttendanceContext(http.MethodPost, "/attendance/today/submit", []byte(`{"entries":{"s1":true,"s2":false}}`))
	handler.Submit(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]bool{"s1": true, "s2": false}, svc.submitReq.Entries)

	w, c = newAttendanceContext(http.MethodPost, "/attendance/today/submit", []byte(`[1,2]`))
	handler.Submit(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAttendanceHandlerSubmitEmptyChunkedBody(t *testing.T) {
	svc := &attendanceServiceMock{}
	handler := NewAttendanceHandler(svc)

	w, c := newAttendanceContext(http.MethodPost, "/attendance/today/submit", nil)
	req, err := http.NewRequest(http.MethodPost, "/attendance/today/submit", io.NopCloser(strings.NewReader("")))
	require.NoError(t, err)
	req.ContentLength = -1
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Submit(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.submitReq)
	assert.Empty(t, svc.submitReq.Entries)
}

func TestAttendanceHandlerReport(t *testing.T) {
	svc := &attendanceServiceMock{report: []byte("Student,Email\n"), reportCT: "text/csv"}
	handler := NewAttendanceHandler(svc)

	w, c := newAttendanceContext(http.MethodGet, "/attendance/report", nil)
	handler.Report(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=attendance-mentor-1.csv", w.Header().Get("Content-Disposition"))
	assert.Equal(t, "Student,Email\n", w.Body.String())

	w, c = newAttendanceContext(http.MethodGet, "/attendance/report?format=xlsx", nil)
	handler.Report(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAttendanceHandlerRequiresClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAttendanceHandler(&attendanceServiceMock{})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/attendance/me", nil)

	handler.Me(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
