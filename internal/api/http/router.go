package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/helpdesk-sla/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-sla/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	SLA     *handlers.SLAHandler
	Metrics *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	v1 := app.Group("/api/v1")
	tickets := v1.Group("/tenants/:tenant/tickets/:id")
	tickets.Get("/sla", cfg.SLA.GetTicketSLA)
	tickets.Post("/pause", cfg.SLA.PauseTicket)
	tickets.Post("/resume", cfg.SLA.ResumeTicket)

	v1.Post("/sla/preview", cfg.SLA.Preview)
}
