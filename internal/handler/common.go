// Package handler contains the HTTP handlers of the booking API.  Handlers
// stay thin: they bind and validate the request, hand it to a service with
// the authenticated caller, and translate the resulting domain error into
// an HTTP status.  All responses use the `{"error": "..."}` envelope on
// failure.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/lab-seat-reservation/internal/layout"
	"github.com/iliyamo/lab-seat-reservation/internal/middleware"
	"github.com/iliyamo/lab-seat-reservation/internal/model"
	"github.com/iliyamo/lab-seat-reservation/internal/repository"
	"github.com/iliyamo/lab-seat-reservation/internal/service"
)

var validate = validator.New()

// caller extracts the authenticated caller placed in the context by the
// JWT middleware.
func caller(c echo.Context) (model.Caller, bool) {
	v, ok := c.Get(middleware.CallerKey).(model.Caller)
	return v, ok
}

// pathID parses a numeric path parameter, rejecting zero.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid " + name)
	}
	return id, nil
}

// httpError maps a domain error to its response.  Unknown errors become an
// opaque 500 so storage details never leak to clients.
func httpError(c echo.Context, err error) error {
	var layoutConflict *repository.LayoutConflictError
	if errors.As(err, &layoutConflict) {
		return c.JSON(http.StatusConflict, echo.Map{
			"error":      "layout change blocked by existing booking",
			"seat":       layoutConflict.SeatName,
			"user_id":    layoutConflict.UserID,
			"session_id": layoutConflict.SessionID,
		})
	}
	switch {
	case errors.Is(err, layout.ErrInvalidSeat),
		errors.Is(err, layout.ErrInvalidConfig),
		errors.Is(err, service.ErrInvalidWindow),
		errors.Is(err, service.ErrInvalidLabConfig),
		errors.Is(err, service.ErrInvalidEquipment),
		errors.Is(err, service.ErrInvalidAttendance):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrForbidden),
		errors.Is(err, repository.ErrLockedOut):
		return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrLabNotFound),
		errors.Is(err, repository.ErrSeatNotFound),
		errors.Is(err, repository.ErrSessionNotFound),
		errors.Is(err, repository.ErrBookingNotFound),
		errors.Is(err, repository.ErrEquipmentNotFound),
		errors.Is(err, repository.ErrSessionEquipmentNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrConflict),
		errors.Is(err, repository.ErrSeatTaken),
		errors.Is(err, repository.ErrAlreadyBooked),
		errors.Is(err, repository.ErrSessionFull),
		errors.Is(err, repository.ErrInsufficientEquipment),
		errors.Is(err, repository.ErrReservationsExist),
		errors.Is(err, repository.ErrBelowReserved),
		errors.Is(err, repository.ErrExceedsInventory),
		errors.Is(err, service.ErrSessionNotEnded):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	}
	c.Logger().Error(err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
