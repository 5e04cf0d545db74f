package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/lab-seat-reservation/internal/layout"
	"github.com/iliyamo/lab-seat-reservation/internal/repository"
	"github.com/iliyamo/lab-seat-reservation/internal/service"
)

// LabHandler exposes lab creation, listing and layout management.
type LabHandler struct {
	Labs    *service.LabService
	LabRepo *repository.LabRepo
}

// NewLabHandler constructs a LabHandler.
func NewLabHandler(labs *service.LabService, labRepo *repository.LabRepo) *LabHandler {
	return &LabHandler{Labs: labs, LabRepo: labRepo}
}

type createLabRequest struct {
	Name   string        `json:"name" validate:"required"`
	Layout layout.Layout `json:"layout" validate:"required"`
}

// Create handles POST /v1/labs.
func (h *LabHandler) Create(c echo.Context) error {
	cal, ok := caller(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body createLabRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := validate.Struct(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	lab, err := h.Labs.Create(c.Request().Context(), cal, body.Name, body.Layout)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusCreated, lab)
}

// List handles GET /v1/labs.
func (h *LabHandler) List(c echo.Context) error {
	labs, err := h.LabRepo.List(c.Request().Context())
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, labs)
}

// GetLayout handles GET /v1/labs/:id/layout.
func (h *LabHandler) GetLayout(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	lab, err := h.LabRepo.GetByID(c.Request().Context(), id)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, lab.Layout)
}

type setLayoutRequest struct {
	Layout layout.Layout `json:"layout" validate:"required"`
}

// SetLayout handles PUT /v1/labs/:id/layout.
func (h *LabHandler) SetLayout(c echo.Context) error {
	cal, ok := caller(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var body setLayoutRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	lab, err := h.Labs.SetLayout(c.Request().Context(), cal, id, body.Layout)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, lab)
}
