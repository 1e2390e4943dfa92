package router

import (
	"github.com/labstack/echo/v4"

	"github.com/rutasur/tour-reservation/internal/handler"
	"github.com/rutasur/tour-reservation/internal/middleware"
)

// RegisterAuth registers the authentication routes. Register, login,
// refresh and logout live under /api/auth without a session; /api/me
// requires a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/api/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	auth := e.Group("/api",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("ADMIN", "CUSTOMER"),
	)
	auth.GET("/me", a.Me)
}
