package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-survey-api/internal/config"
	"github.com/noah-isme/gema-survey-api/internal/utils"
)

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status      string                `json:"status"`
	Timestamp   time.Time             `json:"timestamp"`
	Service     string                `json:"service"`
	Environment string                `json:"environment"`
	Identity    config.IdentityStatus `json:"identity"`
}

// HealthCheck returns a handler that reports application health information.
// A deployment missing identity settings reports "degraded" and lists the
// variables to set.
func HealthCheck(cfg config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity := cfg.IdentityStatus()
		payload := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
			Identity:    identity,
		}
		if len(identity.Missing) > 0 {
			payload.Status = "degraded"
		}

		return utils.SendSuccess(c, "service healthy", payload)
	}
}
