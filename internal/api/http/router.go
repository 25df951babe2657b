package http

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/profile-support/internal/api/http/handlers"
	"github.com/spec-kit/profile-support/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health   *handlers.HealthHandler
	Support  *handlers.SupportHandler
	Telegram *handlers.TelegramHandler
	App      *handlers.AppHandler
	Sessions *auth.SessionMiddleware
	Metrics  http.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics))
	}

	api := app.Group("/api")
	supportAPI := api.Group("/support", apiCORS())
	supportAPI.Get("/messages", cfg.Support.List)
	supportAPI.Post("/messages", cfg.Support.Create)

	if cfg.Telegram != nil {
		api.Post("/telegram/webhook", cfg.Telegram.Webhook)
	}

	pages := app.Group("", cfg.Sessions.Handle)
	pages.Get("/", cfg.App.Home)
	pages.Post("/view/:name", cfg.App.Navigate)
	pages.Post("/profile", cfg.App.SaveProfile)
	pages.Post("/profile/avatar", cfg.App.UploadAvatar)
	pages.Post("/support/messages", cfg.App.SendMessage)
	pages.Get("/support/log", cfg.App.SupportLog)
}
