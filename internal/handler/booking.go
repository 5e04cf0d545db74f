package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/lab-seat-reservation/internal/repository"
	"github.com/iliyamo/lab-seat-reservation/internal/service"
)

// BookingHandler exposes the booking engine: book, unbook, switch, the
// caller's booking list and the staff approval flow.
type BookingHandler struct {
	Bookings    *service.BookingService
	BookingRepo *repository.BookingRepo
}

// NewBookingHandler constructs a BookingHandler.
func NewBookingHandler(bookings *service.BookingService, bookingRepo *repository.BookingRepo) *BookingHandler {
	return &BookingHandler{Bookings: bookings, BookingRepo: bookingRepo}
}

type bookRequest struct {
	LabID     uint64                  `json:"lab_id" validate:"required"`
	SeatName  string                  `json:"seat_name" validate:"required"`
	Notes     *string                 `json:"notes,omitempty"`
	Equipment []service.EquipmentLine `json:"equipment,omitempty" validate:"omitempty,dive"`
}

// Book handles POST /v1/sessions/:id/bookings.
func (h *BookingHandler) Book(c echo.Context) error {
	cal, ok := caller(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	sessionID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var body bookRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := validate.Struct(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	booking, err := h.Bookings.BookSeat(c.Request().Context(), cal, sessionID, body.LabID, body.SeatName, body.Notes, body.Equipment)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusCreated, booking)
}

type unbookRequest struct {
	LabID     uint64 `json:"lab_id" validate:"required"`
	SeatName  string `json:"seat_name" validate:"required"`
	AsTeacher bool   `json:"as_teacher,omitempty"`
}

// Unbook handles DELETE /v1/sessions/:id/bookings.
func (h *BookingHandler) Unbook(c echo.Context) error {
	cal, ok := caller(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	sessionID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var body unbookRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := validate.Struct(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if err := h.Bookings.UnbookSeat(c.Request().Context(), cal, sessionID, body.LabID, body.SeatName, body.AsTeacher); err != nil {
		return httpError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type switchRequest struct {
	LabID    uint64 `json:"lab_id" validate:"required"`
	SeatName string `json:"seat_name" validate:"required"`
}

// Switch handles PATCH /v1/sessions/:id/bookings.
func (h *BookingHandler) Switch(c echo.Context) error {
	cal, ok := caller(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	sessionID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var body switchRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := validate.Struct(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	booking, err := h.Bookings.SwitchSeat(c.Request().Context(), cal, sessionID, body.LabID, body.SeatName)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, booking)
}

// MyBookings handles GET /v1/my-bookings.
func (h *BookingHandler) MyBookings(c echo.Context) error {
	cal, ok := caller(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookings, err := h.BookingRepo.ListByUser(c.Request().Context(), cal.UserID)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, bookings)
}

// Approve handles POST /v1/bookings/:id/approve.
func (h *BookingHandler) Approve(c echo.Context) error {
	return h.decide(c, true)
}

// Reject handles POST /v1/bookings/:id/reject.
func (h *BookingHandler) Reject(c echo.Context) error {
	return h.decide(c, false)
}

func (h *BookingHandler) decide(c echo.Context, approve bool) error {
	cal, ok := caller(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var booking interface{}
	if approve {
		booking, err = h.Bookings.Approve(c.Request().Context(), cal, id)
	} else {
		booking, err = h.Bookings.Reject(c.Request().Context(), cal, id)
	}
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, booking)
}
