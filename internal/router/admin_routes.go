package router

import (
	"github.com/labstack/echo/v4"

	"github.com/rutasur/tour-reservation/internal/handler"
	"github.com/rutasur/tour-reservation/internal/middleware"
)

// AdminHandlers groups the back-office handlers.
type AdminHandlers struct {
	Tours        *handler.AdminTourHandler
	Departures   *handler.AdminDepartureHandler
	Reservations *handler.AdminReservationHandler
	Rules        *handler.AdminReminderRuleHandler
	Installments *handler.AdminInstallmentHandler
}

// RegisterAdmin registers all ADMIN-scoped endpoints. Every route
// requires a valid JWT carrying the ADMIN role. The wire paths sit
// directly under /api next to the public routes; /api/admin serves the
// same handlers as a back-office alias and additionally hosts the reads
// whose /api slot belongs to a public route.
func RegisterAdmin(e *echo.Echo, h AdminHandlers, jwtSecret string) {
	mw := []echo.MiddlewareFunc{
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("ADMIN"),
	}
	api := e.Group("/api", mw...)
	admin := e.Group("/api/admin", mw...)

	for _, g := range []*echo.Group{api, admin} {
		// ---- Tours ----
		g.POST("/tours", h.Tours.Create)
		g.PUT("/tours/:id", h.Tours.Update)
		g.DELETE("/tours/:id", h.Tours.Delete)

		// ---- Departures ----
		g.POST("/departures", h.Departures.Create)
		g.PUT("/departures/:id", h.Departures.Update)
		g.DELETE("/departures/:id", h.Departures.Delete)

		// ---- Reservations ----
		g.GET("/reservations", h.Reservations.List)
		g.PUT("/reservations/:id/status", h.Reservations.UpdateStatus)
		g.PUT("/passengers/:id/document", h.Reservations.ReviewDocument)

		// ---- Installments ----
		g.GET("/reservations/:id/installments", h.Installments.List)
		g.POST("/reservations/:id/installments", h.Installments.Create)
		g.POST("/installments/:id/payment", h.Installments.RecordPayment)

		// ---- Reminder rules ----
		g.GET("/reminder-rules", h.Rules.List)
		g.POST("/reminder-rules", h.Rules.Create)
		g.PUT("/reminder-rules/:id", h.Rules.Update)
		g.DELETE("/reminder-rules/:id", h.Rules.Delete)
	}

	// Unfiltered back-office lists collide with the public cached catalog
	// at /api, and the reservation detail with the public reference
	// lookup, so those reads live only under /api/admin.
	admin.GET("/tours", h.Tours.List)
	admin.GET("/departures", h.Departures.List)
	admin.GET("/reservations/:id", h.Reservations.Get)
}
