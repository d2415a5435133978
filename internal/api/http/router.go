package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/dca-case-service/internal/api/http/handlers"
	"github.com/spec-kit/dca-case-service/internal/auth"
	"github.com/spec-kit/dca-case-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Cases          *handlers.CasesHandler
	Agencies       *handlers.AgenciesHandler
	SLA            *handlers.SLAHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Users.Login)
	authGroup.Post("/register", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleFedExAdmin), cfg.Users.Register)
	authGroup.Get("/me", cfg.AuthMiddleware.Handle, cfg.Users.Me)

	api := app.Group("/api", cfg.AuthMiddleware.Handle)

	cases := api.Group("/cases")
	cases.Post("", auth.RequireFedEx(), cfg.Cases.CreateCase)
	cases.Get("", cfg.Cases.ListCases)
	cases.Get("/:id", cfg.Cases.GetCase)
	cases.Post("/:id/transition", cfg.Cases.Transition)
	cases.Post("/:id/activities", cfg.Cases.LogActivity)
	cases.Post("/:id/score", auth.RequireFedEx(), cfg.Cases.Score)
	cases.Post("/:id/allocate", auth.RequireFedEx(), cfg.Cases.Allocate)

	agencies := api.Group("/agencies")
	agencies.Post("", auth.RequireRole(domain.RoleFedExAdmin), cfg.Agencies.CreateAgency)
	agencies.Get("", auth.RequireFedEx(), cfg.Agencies.ListAgencies)

	// Scheduler entry point; guarded by a shared secret, not a bearer token.
	app.Post("/internal/sla/sweep", cfg.SLA.Sweep)
}
