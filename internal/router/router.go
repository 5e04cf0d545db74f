// Package router wires the HTTP surface: the public health check and the
// JWT-protected /v1 API with per-route role enforcement.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/lab-seat-reservation/internal/handler"
	"github.com/iliyamo/lab-seat-reservation/internal/middleware"
	"github.com/iliyamo/lab-seat-reservation/internal/model"
)

// Handlers bundles every handler the router mounts.
type Handlers struct {
	Labs       *handler.LabHandler
	Sessions   *handler.SessionHandler
	Bookings   *handler.BookingHandler
	Equipment  *handler.EquipmentHandler
	Attendance *handler.AttendanceHandler
}

// Register mounts all routes on the given Echo instance.  jwtSecret
// verifies tokens from the external identity service; rateLimit may be a
// pass-through middleware when Redis is unavailable.
func Register(e *echo.Echo, h Handlers, jwtSecret string, rateLimit echo.MiddlewareFunc) {
	e.GET("/healthz", handler.Health)

	v1 := e.Group("/v1")
	v1.Use(middleware.JWTAuth(jwtSecret))
	v1.Use(middleware.RequireRole(model.RoleStudent, model.RoleTeacher, model.RoleAdmin))
	if rateLimit != nil {
		v1.Use(rateLimit)
	}

	staff := middleware.RequireRole(model.RoleTeacher, model.RoleAdmin)
	admin := middleware.RequireRole(model.RoleAdmin)

	// Labs and layouts.
	v1.POST("/labs", h.Labs.Create, admin)
	v1.GET("/labs", h.Labs.List)
	v1.GET("/labs/:id/layout", h.Labs.GetLayout)
	v1.PUT("/labs/:id/layout", h.Labs.SetLayout, staff)

	// Sessions.
	v1.POST("/labs/:id/sessions", h.Sessions.Create, staff)
	v1.GET("/labs/:id/sessions", h.Sessions.ListByLab)
	v1.PUT("/sessions/:id", h.Sessions.Update, staff)
	v1.DELETE("/sessions/:id", h.Sessions.Delete, staff)
	v1.GET("/sessions/:id/seats", h.Sessions.Seats)

	// Bookings.
	v1.POST("/sessions/:id/bookings", h.Bookings.Book)
	v1.DELETE("/sessions/:id/bookings", h.Bookings.Unbook)
	v1.PATCH("/sessions/:id/bookings", h.Bookings.Switch)
	v1.GET("/my-bookings", h.Bookings.MyBookings)
	v1.POST("/bookings/:id/approve", h.Bookings.Approve, staff)
	v1.POST("/bookings/:id/reject", h.Bookings.Reject, staff)

	// Equipment inventory, offers and usage reports.
	v1.POST("/labs/:id/equipment", h.Equipment.Create, staff)
	v1.GET("/labs/:id/equipment", h.Equipment.ListByLab)
	v1.GET("/sessions/:id/equipment", h.Equipment.SessionOffers)
	v1.PUT("/sessions/:id/equipment", h.Equipment.SetSessionOffers, staff)
	v1.POST("/equipment-bookings/:id/actual-use", h.Equipment.ReportActualUse)

	// Attendance.
	v1.PUT("/sessions/:id/attendance/:userId", h.Attendance.Mark, staff)
	v1.GET("/sessions/:id/attendance", h.Attendance.ListBySession, staff)
}
