package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/itsupport-service/internal/api/http/handlers"
	"github.com/spec-kit/itsupport-service/internal/auth"
	"github.com/spec-kit/itsupport-service/internal/domain"
	"github.com/spec-kit/itsupport-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Support        *handlers.SupportTicketsHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if registry := cfg.Metrics.Registry(); registry != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)

	support := app.Group("/support/tickets", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.UserRoleSupport))
	support.Get("/", cfg.Support.ListTickets)
	support.Get("/stats", cfg.Support.Stats)
	support.Patch("/:id/status", cfg.Support.UpdateStatus)
	support.Post("/:id/advance", cfg.Support.AdvanceStatus)
	support.Post("/:id/assign", cfg.Support.Assign)
	support.Post("/:id/classify", cfg.Support.Classify)
}
