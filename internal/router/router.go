package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/globalpath-api/internal/catalog"
	"github.com/noah-isme/globalpath-api/internal/config"
	"github.com/noah-isme/globalpath-api/internal/handler"
	"github.com/noah-isme/globalpath-api/internal/middleware"
	"github.com/noah-isme/globalpath-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	CatalogHandler          *handler.CatalogHandler
	ApplicationHandler      *handler.ApplicationHandler
	NotificationHandler     *handler.NotificationHandler
	StudentDashboardHandler *handler.StudentDashboardHandler
	InquiryHandler          *handler.InquiryHandler
	SeedHandler             *handler.SeedHandler
	AdminActivityHandler    *handler.AdminActivityHandler
	AdminCatalogHandler     *handler.AdminCatalogHandler
	CatalogStatus           func() []catalog.CollectionStatus
	JWTMiddleware           fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.CatalogStatus))

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	// Public catalog and search
	if deps.CatalogHandler != nil {
		deps.CatalogHandler.Register(api.Group("/catalog"))
		deps.CatalogHandler.RegisterSearch(api.Group("/search"))
	}

	if deps.InquiryHandler != nil {
		inquiries := api.Group("/inquiries", middleware.RateLimit("inquiries", cfg.InquiryRateLimit, time.Minute))
		deps.InquiryHandler.Register(inquiries)
	}

	// Seeding is guarded by its own token rather than a user session.
	if deps.SeedHandler != nil {
		deps.SeedHandler.Register(api.Group("/admin/seed"))
	}

	if deps.ApplicationHandler != nil {
		applications := api.Group("/applications", jwtMiddleware)
		deps.ApplicationHandler.Register(applications)

		reviewer := api.Group("/reviewer", jwtMiddleware, middleware.RequireReviewer())
		deps.ApplicationHandler.RegisterReviewer(reviewer)
		if deps.NotificationHandler != nil {
			deps.NotificationHandler.Register(reviewer.Group("/notifications"))
		}
	}

	if deps.StudentDashboardHandler != nil {
		student := api.Group("/student", jwtMiddleware, middleware.RequireStudent())
		deps.StudentDashboardHandler.Register(student)
	}

	admin := api.Group("/admin", jwtMiddleware, middleware.RequireAdmin())
	if deps.AdminActivityHandler != nil {
		deps.AdminActivityHandler.Register(admin.Group("/activities"))
	}
	if deps.AdminCatalogHandler != nil {
		deps.AdminCatalogHandler.Register(admin.Group("/catalog"))
	}
}
