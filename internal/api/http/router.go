package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/cobranza-service/internal/api/http/handlers"
	"github.com/spec-kit/cobranza-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health          *handlers.HealthHandler
	Webhook         *handlers.WebhookHandler
	Auth            *handlers.AuthHandler
	AdminTickets    *handlers.AdminTicketsHandler
	AdminMiddleware *auth.AdminMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Get("/webhook/whatsapp", cfg.Webhook.Verify)
	app.Post("/webhook/whatsapp", cfg.Webhook.Receive)

	app.Post("/auth/admin/login", cfg.Auth.Login)

	admin := app.Group("/api/admin", cfg.AdminMiddleware.Handle)
	admin.Get("/tickets", cfg.AdminTickets.ListTickets)
	admin.Get("/tickets/:id", cfg.AdminTickets.GetTicket)
	admin.Put("/tickets/:id/resolver", cfg.AdminTickets.ResolveTicket)
	admin.Put("/tickets/:id/estado", cfg.AdminTickets.UpdateEstado)
	admin.Get("/stats", cfg.AdminTickets.Stats)
}
