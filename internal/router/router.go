// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/field-interventions/internal/handler"
	"github.com/iliyamo/field-interventions/internal/middleware"
	"github.com/iliyamo/field-interventions/internal/model"
)

// Guards holds the optional Redis-backed middleware.  Nil entries are
// skipped.
type Guards struct {
	RateLimit echo.MiddlewareFunc
	Cache     echo.MiddlewareFunc
}

func (g Guards) limited() []echo.MiddlewareFunc {
	if g.RateLimit == nil {
		return nil
	}
	return []echo.MiddlewareFunc{g.RateLimit}
}

func (g Guards) cached() []echo.MiddlewareFunc {
	if g.Cache == nil {
		return nil
	}
	return []echo.MiddlewareFunc{g.Cache}
}

// RegisterRoutes registers routes that do not require authentication.
func RegisterRoutes(e *echo.Echo, health echo.HandlerFunc) {
	e.GET("/healthz", health)
}

// RegisterAuth registers session endpoints.  Register, login, refresh and
// logout live under /v1/auth without a JWT; /v1/me requires one.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, guards Guards) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register, guards.limited()...)
	g.POST("/login", a.Login, guards.limited()...)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
}

// RegisterInterventions registers the intervention endpoints shared by
// technicians and administrators.  Scoping happens in the service: a
// technician only ever sees their own records.
func RegisterInterventions(e *echo.Echo, h *handler.InterventionHandler, jwtSecret string, guards Guards) {
	g := e.Group("/v1/interventions",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleTech, model.RoleAdmin),
	)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.GET("/:id/signature", h.Signature, guards.cached()...)

	techOnly := middleware.RequireRole(model.RoleTech)
	g.POST("/totals", h.Preview)
	g.POST("", h.Create, append([]echo.MiddlewareFunc{techOnly}, guards.limited()...)...)
	g.POST("/:id/sign", h.Sign, append([]echo.MiddlewareFunc{techOnly}, guards.limited()...)...)
}

// RegisterAdmin registers the back-office endpoints.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, jwtSecret string) {
	g := e.Group("/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)
	g.GET("/interventions", a.ListInterventions)
	g.POST("/technicians", a.CreateTechnician)
}
