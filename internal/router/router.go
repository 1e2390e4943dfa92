// Package router wires HTTP routes to handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/rutasur/tour-reservation/internal/handler"
)

// RegisterRoutes registers routes that need no authentication or
// repositories, currently only the health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterPublic registers the unauthenticated catalog routes. cacheMW is
// the Redis response cache; it wraps only these read-only routes so the
// booking flow always sees live seat counts.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, cacheMW echo.MiddlewareFunc) {
	g := e.Group("/api", cacheMW)
	g.GET("/tours", p.ListTours)
	g.GET("/departures", p.ListDepartures)
	g.GET("/tours/:id", p.GetTour)
	g.GET("/tours/:id/departures", p.ListTourDepartures)

	// Departure availability is intentionally uncached: the booking form
	// polls it for live seat counts.
	e.GET("/api/departures/:id", p.GetDeparture)
}
