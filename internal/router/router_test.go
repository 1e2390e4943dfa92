package router

import (
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rutasur/tour-reservation/internal/handler"
)

func passthrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

func registerAll(t *testing.T) *echo.Echo {
	t.Helper()
	e := echo.New()
	RegisterRoutes(e)
	RegisterPublic(e, &handler.PublicHandler{}, passthrough)
	RegisterAuth(e, &handler.AuthHandler{}, "secret")
	RegisterBooking(e, &handler.BookingHandler{}, &handler.AdminReservationHandler{}, "secret", passthrough)
	RegisterAdmin(e, AdminHandlers{
		Tours:        &handler.AdminTourHandler{},
		Departures:   &handler.AdminDepartureHandler{},
		Reservations: &handler.AdminReservationHandler{},
		Rules:        &handler.AdminReminderRuleHandler{},
		Installments: &handler.AdminInstallmentHandler{},
	}, "secret")
	return e
}

func TestWirePaths(t *testing.T) {
	e := registerAll(t)
	got := map[string]string{}
	for _, r := range e.Routes() {
		got[r.Method+" "+r.Path] = r.Name
	}

	want := []string{
		"GET /healthz",
		"GET /api/tours",
		"GET /api/tours/:id",
		"GET /api/tours/:id/departures",
		"GET /api/departures",
		"GET /api/departures/:id",
		"POST /api/reservations",
		"GET /api/reservations/:id",
		"GET /api/reservations/:id/timeline",
		"GET /api/reservations",
		"PUT /api/reservations/:id/status",
		"GET /api/reservations/:id/installments",
		"POST /api/reservations/:id/installments",
		"POST /api/installments/:id/payment",
		"PUT /api/passengers/:id/document",
		"POST /api/tours",
		"PUT /api/tours/:id",
		"DELETE /api/tours/:id",
		"POST /api/departures",
		"PUT /api/departures/:id",
		"DELETE /api/departures/:id",
		"GET /api/reminder-rules",
		"POST /api/reminder-rules",
		"PUT /api/reminder-rules/:id",
		"DELETE /api/reminder-rules/:id",
		"POST /api/auth/register",
		"POST /api/auth/login",
		"POST /api/auth/refresh",
		"POST /api/auth/logout",
		"GET /api/me",
		"GET /api/admin/reservations/:id",
		"GET /api/admin/tours",
		"GET /api/admin/departures",
	}
	for _, w := range want {
		assert.Contains(t, got, w)
	}
}

func TestReferenceLookupKeepsItsRoute(t *testing.T) {
	// The admin surface shares the /api prefix with the public routes;
	// the reference lookup must not be shadowed by an admin read.
	e := registerAll(t)
	for _, r := range e.Routes() {
		if r.Method == "GET" && r.Path == "/api/reservations/:id" {
			require.True(t, strings.Contains(r.Name, "GetByReference"), r.Name)
			return
		}
	}
	t.Fatal("GET /api/reservations/:id not registered")
}
