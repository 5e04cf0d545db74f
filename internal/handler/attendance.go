package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/lab-seat-reservation/internal/repository"
	"github.com/iliyamo/lab-seat-reservation/internal/service"
)

// AttendanceHandler exposes post-session attendance marking and listing.
type AttendanceHandler struct {
	Attendance     *service.AttendanceService
	AttendanceRepo *repository.AttendanceRepo
}

// NewAttendanceHandler constructs an AttendanceHandler.
func NewAttendanceHandler(attendance *service.AttendanceService, attendanceRepo *repository.AttendanceRepo) *AttendanceHandler {
	return &AttendanceHandler{Attendance: attendance, AttendanceRepo: attendanceRepo}
}

type markAttendanceRequest struct {
	Status string  `json:"status" validate:"required,oneof=PRESENT ABSENT EXCUSED"`
	Notes  *string `json:"notes,omitempty"`
}

// Mark handles PUT /v1/sessions/:id/attendance/:userId.
func (h *AttendanceHandler) Mark(c echo.Context) error {
	cal, ok := caller(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	sessionID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	userID, err := pathID(c, "userId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var body markAttendanceRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := validate.Struct(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	a, err := h.Attendance.Mark(c.Request().Context(), cal, sessionID, userID, body.Status, body.Notes)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

// ListBySession handles GET /v1/sessions/:id/attendance.
func (h *AttendanceHandler) ListBySession(c echo.Context) error {
	sessionID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	marks, err := h.AttendanceRepo.ListBySession(c.Request().Context(), sessionID)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, marks)
}
