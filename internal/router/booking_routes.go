package router

import (
	"github.com/labstack/echo/v4"

	"github.com/rutasur/tour-reservation/internal/handler"
	"github.com/rutasur/tour-reservation/internal/middleware"
)

// RegisterBooking registers the public booking flow. Creation sits behind
// the token-bucket limiter to blunt scripted seat grabbing; the atomic
// capacity check in the repository remains the real overbooking guard.
// Timeline reads require authentication because they expose the audit
// trail; the handler enforces admin-or-owner on top.
func RegisterBooking(e *echo.Echo, b *handler.BookingHandler, ar *handler.AdminReservationHandler,
	jwtSecret string, rateMW echo.MiddlewareFunc) {
	e.POST("/api/reservations", b.Create, rateMW)
	// Echo requires one param name per path position, so the public
	// reference lookup shares :id with the timeline route.
	e.GET("/api/reservations/:id", b.GetByReference)

	auth := e.Group("/api",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("ADMIN", "CUSTOMER"),
	)
	auth.GET("/reservations/:id/timeline", ar.Timeline)
}
