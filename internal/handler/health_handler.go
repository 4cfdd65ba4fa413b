package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/globalpath-api/internal/catalog"
	"github.com/noah-isme/globalpath-api/internal/config"
	"github.com/noah-isme/globalpath-api/internal/utils"
)

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status      string                     `json:"status"`
	Timestamp   time.Time                  `json:"timestamp"`
	Service     string                     `json:"service"`
	Environment string                     `json:"environment"`
	Catalog     []catalog.CollectionStatus `json:"catalog,omitempty"`
}

// HealthCheck reports service health. The status is "degraded" while any catalog collection is stale.
func HealthCheck(cfg config.Config, catalogStatus func() []catalog.CollectionStatus) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
		}
		if catalogStatus != nil {
			payload.Catalog = catalogStatus()
			for _, status := range payload.Catalog {
				if status.Stale {
					payload.Status = "degraded"
				}
			}
		}

		return utils.SendSuccess(c, "service healthy", payload)
	}
}
