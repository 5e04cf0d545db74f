package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/lab-seat-reservation/internal/repository"
	"github.com/iliyamo/lab-seat-reservation/internal/service"
)

// SessionHandler exposes the session lifecycle and the per-session seat
// map.
type SessionHandler struct {
	Sessions    *service.SessionService
	SessionRepo *repository.SessionRepo
	LabRepo     *repository.LabRepo
	BookingRepo *repository.BookingRepo
}

// NewSessionHandler constructs a SessionHandler.
func NewSessionHandler(sessions *service.SessionService, sessionRepo *repository.SessionRepo, labRepo *repository.LabRepo, bookingRepo *repository.BookingRepo) *SessionHandler {
	return &SessionHandler{Sessions: sessions, SessionRepo: sessionRepo, LabRepo: labRepo, BookingRepo: bookingRepo}
}

type sessionWindowRequest struct {
	StartsAt time.Time `json:"starts_at" validate:"required"`
	EndsAt   time.Time `json:"ends_at" validate:"required"`
}

// Create handles POST /v1/labs/:id/sessions.
func (h *SessionHandler) Create(c echo.Context) error {
	cal, ok := caller(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	labID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var body sessionWindowRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := validate.Struct(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	sess, err := h.Sessions.Create(c.Request().Context(), cal, labID, body.StartsAt, body.EndsAt)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusCreated, sess)
}

// Update handles PUT /v1/sessions/:id.
func (h *SessionHandler) Update(c echo.Context) error {
	cal, ok := caller(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var body sessionWindowRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := validate.Struct(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	sess, err := h.Sessions.UpdateTimes(c.Request().Context(), cal, id, body.StartsAt, body.EndsAt)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, sess)
}

// Delete handles DELETE /v1/sessions/:id.
func (h *SessionHandler) Delete(c echo.Context) error {
	cal, ok := caller(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if err := h.Sessions.Remove(c.Request().Context(), cal, id); err != nil {
		return httpError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListByLab handles GET /v1/labs/:id/sessions.
func (h *SessionHandler) ListByLab(c echo.Context) error {
	labID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	sessions, err := h.SessionRepo.ListByLab(c.Request().Context(), labID)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, sessions)
}

// seatStatus is one entry in the seat map response.
type seatStatus struct {
	Name      string `json:"name"`
	Status    string `json:"status"`
	BookingID uint64 `json:"booking_id,omitempty"`
}

// Seats handles GET /v1/sessions/:id/seats.  It enumerates the lab's
// current layout and marks each seat FREE or BOOKED for the session.
func (h *SessionHandler) Seats(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	ctx := c.Request().Context()
	sess, err := h.SessionRepo.GetByID(ctx, id)
	if err != nil {
		return httpError(c, err)
	}
	lab, err := h.LabRepo.GetByID(ctx, sess.LabID)
	if err != nil {
		return httpError(c, err)
	}
	bookings, err := h.BookingRepo.ListBySession(ctx, id)
	if err != nil {
		return httpError(c, err)
	}
	booked := make(map[string]uint64, len(bookings))
	for _, b := range bookings {
		booked[b.Name] = b.ID
	}
	names := lab.Layout.SeatNames()
	seats := make([]seatStatus, 0, len(names))
	for _, name := range names {
		s := seatStatus{Name: name, Status: "FREE"}
		if bid, ok := booked[name]; ok {
			s.Status = "BOOKED"
			s.BookingID = bid
		}
		seats = append(seats, s)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"session_id": sess.ID,
		"capacity":   sess.Capacity,
		"seats":      seats,
	})
}
