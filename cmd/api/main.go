package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/globalpath-api/internal/catalog"
	"github.com/noah-isme/globalpath-api/internal/config"
	"github.com/noah-isme/globalpath-api/internal/database"
	"github.com/noah-isme/globalpath-api/internal/handler"
	"github.com/noah-isme/globalpath-api/internal/lifecycle"
	"github.com/noah-isme/globalpath-api/internal/middleware"
	"github.com/noah-isme/globalpath-api/internal/repository"
	"github.com/noah-isme/globalpath-api/internal/router"
	"github.com/noah-isme/globalpath-api/internal/service"
)

const sseKeepAlive = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Str("app", cfg.AppName).Logger()

	db, driver, err := database.Connect(cfg.DatabaseURL, cfg.SQLitePath)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	logger.Info().Str("driver", driver).Msg("database connected")

	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(context.Background(), cfg.RedisURL, cfg.AppName)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis not configured; caches and checkpoints stay in process")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = nats.Connect(cfg.NATSURL, nats.Name(cfg.AppName))
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	catalogRepo := repository.NewCatalogRepository(db)
	applicationRepo := repository.NewApplicationRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)
	inquiryRepo := repository.NewInquiryRepository(db)

	var (
		source   catalog.Source
		featured service.FeaturedWriter
	)
	if cfg.CatalogSource == config.CatalogSourceFile {
		source = catalog.NewFileSource(cfg.CatalogSeedFile)
	} else {
		source = catalogRepo
		featured = catalogRepo
	}

	store := catalog.NewStore(source, logger)
	activityService := service.NewActivityService(activityRepo, logger)
	catalogService := service.NewCatalogService(store, featured, activityService, logger)
	dashboardService := service.NewStudentDashboardService(applicationRepo, store, redisClient, cfg.DashboardCacheTTL, logger)
	bus := service.NewEventBus(redisClient, cfg.EventsChannel, natsConn, logger)

	applicationService := service.NewApplicationService(service.ApplicationServiceDeps{
		Repo:    applicationRepo,
		Catalog: store,
		Machine: lifecycle.NewMachine(lifecycle.Rules{
			MinStatementLength: cfg.StatementMinLength,
			MaxStatementLength: cfg.StatementMaxLength,
		}),
		Validator:  validate,
		Events:     bus,
		Dashboards: dashboardService,
		Logger:     logger,
	})

	var checkpoints service.CheckpointStore = service.NewMemoryCheckpointStore()
	if redisClient != nil {
		checkpoints = service.NewRedisCheckpointStore(redisClient, cfg.CheckpointTTL)
	}
	notifiers := service.NewNotifierRegistry(applicationService, checkpoints, cfg.NotifierInterval, logger)
	bus.Subscribe(notifiers.HandleTransition)

	inquiryService := service.NewInquiryService(inquiryRepo, store, redisClient, validate, service.NewLogInquiryDelivery(logger), cfg.InquiryDedupeTTL, logger)
	seedService := service.NewSeedService(catalogRepo, catalogService, activityService, cfg.SeedEnabled, cfg.SeedToken, logger)

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.CatalogSource == config.CatalogSourceDatabase && cfg.CatalogSeedFile != "" {
		seedFromFile(runCtx, seedService, cfg.CatalogSeedFile, logger)
	}
	if _, err := catalogService.RefreshAll(runCtx); err != nil {
		logger.Warn().Err(err).Msg("initial catalog load incomplete")
	}

	bus.Start(runCtx)
	notifiers.Start(runCtx)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AllowOrigins: cfg.CORSOrigins})
	router.Register(app, cfg, router.Dependencies{
		CatalogHandler:          handler.NewCatalogHandler(catalogService, logger),
		ApplicationHandler:      handler.NewApplicationHandler(applicationService, logger),
		NotificationHandler:     handler.NewNotificationHandler(notifiers, logger, sseKeepAlive),
		StudentDashboardHandler: handler.NewStudentDashboardHandler(dashboardService, logger),
		InquiryHandler:          handler.NewInquiryHandler(inquiryService, logger),
		SeedHandler:             handler.NewSeedHandler(seedService, logger),
		AdminActivityHandler:    handler.NewAdminActivityHandler(activityService, logger),
		AdminCatalogHandler:     handler.NewAdminCatalogHandler(catalogService, validate, logger),
		CatalogStatus:           catalogService.Status,
		JWTMiddleware:           middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(runCtx, app)
}

func seedFromFile(ctx context.Context, seeds service.SeedService, path string, logger zerolog.Logger) {
	raw, err := os.ReadFile(path)
	if err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("catalog seed file unreadable")
		return
	}
	doc, err := catalog.ParseDocument(raw)
	if err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("catalog seed file invalid")
		return
	}
	result, err := seeds.LoadDocument(ctx, doc)
	if err != nil {
		logger.Warn().Err(err).Msg("catalog seed failed")
		return
	}
	logger.Info().Int64("affected", result.Affected).Msg("catalog seeded from file")
}

func waitForShutdown(runCtx context.Context, app *fiber.App) {
	<-runCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
