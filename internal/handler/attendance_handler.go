package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mentor-portal-api/internal/attendance"
	"github.com/noah-isme/mentor-portal-api/internal/dto"
	"github.com/noah-isme/mentor-portal-api/internal/middleware"
	"github.com/noah-isme/mentor-portal-api/internal/models"
	"github.com/noah-isme/mentor-portal-api/internal/service"
	appErrors "github.com/noah-isme/mentor-portal-api/pkg/errors"
	"github.com/noah-isme/mentor-portal-api/pkg/response"
)

type attendanceService interface {
	GetWindow(ctx context.Context) (*dto.AttendanceWindowResponse, error)
	SetWindow(ctx context.Context, req dto.AttendanceWindowRequest, actorID string, meta models.LoginRequest) (*dto.AttendanceWindowResponse, error)
	MentorOverview(ctx context.Context, mentorID string) (*dto.MentorOverviewResponse, bool, error)
	StudentSummary(ctx context.Context, studentID string) (*dto.StudentAttendanceResponse, error)
	Day(ctx context.Context, mentorID, rawDate string) (*dto.DayResponse, error)
	Stage(ctx context.Context, mentorID, studentID string, present bool) (attendance.State, error)
	Submit(ctx context.Context, mentorID string, req dto.SubmitAttendanceRequest, meta models.LoginRequest) (*dto.SubmitAttendanceResponse, error)
	Calendar(ctx context.Context, mentorID, month string) (*dto.CalendarResponse, error)
	Report(ctx context.Context, mentorID, format string) ([]byte, string, error)
}

// AttendanceHandler exposes the attendance window and marking endpoints.
type AttendanceHandler struct {
	service attendanceService
}

// NewAttendanceHandler constructs the handler.
func NewAttendanceHandler(svc attendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: svc}
}

// GetWindow godoc
// @Summary Get attendance window
// @Tags Attendance
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /attendance/window [get]
func (h *AttendanceHandler) GetWindow(c *gin.Context) {
	window, err := h.service.GetWindow(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, window, nil)
}

// SetWindow godoc
// @Summary Set attendance window
// @Description Replace the inclusive date range eligible for marking and percentage computation
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body dto.AttendanceWindowRequest true "Window"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /attendance/window [put]
func (h *AttendanceHandler) SetWindow(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.AttendanceWindowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid attendance window payload"))
		return
	}

	window, err := h.service.SetWindow(c.Request.Context(), req, claims.UserID, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, window, nil)
}

// Overview godoc
// @Summary Mentor attendance overview
// @Description Assigned students with percentages and today's marks
// @Tags Attendance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /attendance/overview [get]
func (h *AttendanceHandler) Overview(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	overview, cacheHit, err := h.service.MentorOverview(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, overview, nil, middleware.ExtractMeta(c))
}

// Me godoc
// @Summary Own attendance
// @Description The calling student's attendance percentage
// @Tags Attendance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /attendance/me [get]
func (h *AttendanceHandler) Me(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	summary, err := h.service.StudentSummary(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Day godoc
// @Summary Attendance for a date
// @Tags Attendance
// @Produce json
// @Param date path string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /attendance/days/{date} [get]
func (h *AttendanceHandler) Day(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	day, err := h.service.Day(c.Request.Context(), claims.UserID, c.Param("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, day, nil)
}

// Stage godoc
// @Summary Stage a mark for today
// @Description Toggle a student's presence for today without saving it
// @Tags Attendance
// @Accept json
// @Produce json
// @Param studentId path string true "Student ID"
// @Param payload body dto.StageAttendanceRequest true "Presence"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /attendance/today/{studentId} [put]
func (h *AttendanceHandler) Stage(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.StageAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Present == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "present is required"))
		return
	}

	state, err := h.service.Stage(c.Request.Context(), claims.UserID, c.Param("studentId"), *req.Present)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"state": state}, nil)
}

// Submit godoc
// @Summary Submit today's attendance
// @Description Persist every staged mark for today in one write. Optional entries are staged first.
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body dto.SubmitAttendanceRequest false "Extra marks"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /attendance/today/submit [post]
func (h *AttendanceHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	// An empty body, sized or chunked, submits the staged draft as is.
	var req dto.SubmitAttendanceRequest
	if c.Request.Body != nil {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid submit payload"))
			return
		}
	}

	result, err := h.service.Submit(c.Request.Context(), claims.UserID, req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Calendar godoc
// @Summary Attendance calendar
// @Tags Attendance
// @Produce json
// @Param month query string false "Month (YYYY-MM), defaults to the current month"
// @Success 200 {object} response.Envelope
// @Router /attendance/calendar [get]
func (h *AttendanceHandler) Calendar(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	calendar, err := h.service.Calendar(c.Request.Context(), claims.UserID, c.Query("month"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, calendar, nil)
}

// Report godoc
// @Summary Download attendance report
// @Tags Attendance
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /attendance/report [get]
func (h *AttendanceHandler) Report(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	format := c.DefaultQuery("format", service.ReportFormatCSV)
	data, contentType, err := h.service.Report(c.Request.Context(), claims.UserID, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	ext := service.ReportFormatCSV
	if contentType == "application/pdf" {
		ext = service.ReportFormatPDF
	}
	response.Attachment(c, fmt.Sprintf("attendance-%s.%s", claims.UserID, ext), contentType, data)
}
