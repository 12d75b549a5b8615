package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-survey-api/internal/config"
	"github.com/noah-isme/gema-survey-api/internal/handler"
	"github.com/noah-isme/gema-survey-api/internal/middleware"
	"github.com/noah-isme/gema-survey-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler    *handler.AuthHandler
	SessionHandler *handler.SessionHandler
	ProfileHandler *handler.ProfileHandler
	SurveyHandler  *handler.SurveyHandler
	SessionGuard   fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	// Use provided session middleware, or a no-op if nil
	sessionGuard := deps.SessionGuard
	if sessionGuard == nil {
		sessionGuard = func(c *fiber.Ctx) error { return c.Next() }
	}
	requireUser := middleware.WithAuth(func(c *fiber.Ctx) error { return c.Next() }, middleware.AuthOptions{RequireUser: true})
	protected := []fiber.Handler{sessionGuard, requireUser, middleware.RateLimit("survey", cfg.RateLimitMax, time.Minute)}

	// Sign-in
	if deps.AuthHandler != nil {
		auth := api.Group("/auth", middleware.RateLimit("auth", cfg.RateLimitMax, time.Minute))
		deps.AuthHandler.Register(auth, protected...)
	}

	// Screen state and live stream
	if deps.SessionHandler != nil {
		session := api.Group("/session", protected...)
		deps.SessionHandler.Register(session)
	}

	if deps.ProfileHandler != nil {
		profile := api.Group("/profile", protected...)
		deps.ProfileHandler.Register(profile)
	}

	if deps.SurveyHandler != nil {
		surveyGroup := api.Group("/survey", protected...)
		deps.SurveyHandler.Register(surveyGroup)
	}
}
