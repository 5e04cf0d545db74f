package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/lab-seat-reservation/internal/repository"
	"github.com/iliyamo/lab-seat-reservation/internal/service"
)

// EquipmentHandler exposes the lab inventory, per-session offers and usage
// reports.
type EquipmentHandler struct {
	Equipment     *service.EquipmentService
	EquipmentRepo *repository.EquipmentRepo
}

// NewEquipmentHandler constructs an EquipmentHandler.
func NewEquipmentHandler(equipment *service.EquipmentService, equipmentRepo *repository.EquipmentRepo) *EquipmentHandler {
	return &EquipmentHandler{Equipment: equipment, EquipmentRepo: equipmentRepo}
}

type createEquipmentRequest struct {
	Name           string     `json:"name" validate:"required"`
	Total          int        `json:"total" validate:"required,gt=0"`
	UnitType       string     `json:"unit_type" validate:"required,oneof=UNIT ML"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
}

// Create handles POST /v1/labs/:id/equipment.
func (h *EquipmentHandler) Create(c echo.Context) error {
	cal, ok := caller(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	labID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var body createEquipmentRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := validate.Struct(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	eq, err := h.Equipment.CreateEquipment(c.Request().Context(), cal, labID, body.Name, body.Total, body.UnitType, body.ExpirationDate)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusCreated, eq)
}

// ListByLab handles GET /v1/labs/:id/equipment.
func (h *EquipmentHandler) ListByLab(c echo.Context) error {
	labID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	items, err := h.EquipmentRepo.ListByLab(c.Request().Context(), labID)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

// SessionOffers handles GET /v1/sessions/:id/equipment.
func (h *EquipmentHandler) SessionOffers(c echo.Context) error {
	sessionID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	offers, err := h.EquipmentRepo.ListOffersBySession(c.Request().Context(), sessionID)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, offers)
}

type setOffersRequest struct {
	Offers []service.Offer `json:"offers" validate:"dive"`
}

// SetSessionOffers handles PUT /v1/sessions/:id/equipment.
func (h *EquipmentHandler) SetSessionOffers(c echo.Context) error {
	cal, ok := caller(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	sessionID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var body setOffersRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := validate.Struct(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	offers, err := h.Equipment.SetOffers(c.Request().Context(), cal, sessionID, body.Offers)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, offers)
}

type actualUseRequest struct {
	Amount int `json:"amount" validate:"gte=0"`
}

// ReportActualUse handles POST /v1/equipment-bookings/:id/actual-use.
func (h *EquipmentHandler) ReportActualUse(c echo.Context) error {
	cal, ok := caller(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var body actualUseRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := validate.Struct(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if err := h.Equipment.ReportActualUse(c.Request().Context(), cal, id, body.Amount); err != nil {
		return httpError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
