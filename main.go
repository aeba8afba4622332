// Package main provides the main entry point for the Pick intro service
//
// @title Pick Intro API
// @version 1.0
// @description Profile drafts, interest resolution and WhatsApp intro hand-offs for Pick.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amirphl/pick-intro/app/handlers"
	"github.com/amirphl/pick-intro/app/logging"
	"github.com/amirphl/pick-intro/app/middleware"
	"github.com/amirphl/pick-intro/app/router"
	"github.com/amirphl/pick-intro/app/services"
	businessflow "github.com/amirphl/pick-intro/business_flow"
	"github.com/amirphl/pick-intro/config"
	"github.com/amirphl/pick-intro/models"
	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Application represents the main application structure
type Application struct {
	router    *router.FiberRouter
	config    *config.ProductionConfig
	server    *fiber.App
	logger    zerolog.Logger
	stopFuncs []func()
}

func main() {
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger, logCloser, err := logging.New(cfg.Logging, "pick-intro")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize logger")
	}
	defer closeQuietly(logCloser)

	logger.Info().
		Str("environment", cfg.Deployment.Environment).
		Str("version", cfg.Deployment.Version).
		Str("commit", cfg.Deployment.CommitHash).
		Msg("Starting Pick intro service")

	app, err := initializeApplication(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
	}

	app.router.SetupRoutes()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		logger.Info().Str("address", address).Msg("Server starting")

		if err := app.server.Listen(address); err != nil {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-sigChan
	logger.Info().Msg("Shutting down gracefully...")

	// Stop background workers
	for _, fn := range app.stopFuncs {
		fn()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Error during shutdown")
	}

	logger.Info().Msg("Server stopped")
}

// initializeCache connects to redis when caching is enabled. A nil client means caching is off.
func initializeCache(cfg config.CacheConfig, logger zerolog.Logger) (*redis.Client, error) {
	if !cfg.Enabled || cfg.Provider != "redis" {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info().Str("addr", opt.Addr).Int("db", cfg.RedisDB).Msg("Redis connection established")
	return rc, nil
}

// startCacheHealthMonitor periodically pings redis until the returned func is called
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration, logger zerolog.Logger) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(context.Background(), 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					logger.Warn().Err(err).Msg("Redis healthcheck failed")
				}
				c()
			}
		}
	}()
	return cancel
}

type collaborators struct {
	profiles  services.ProfileService
	interests services.InterestService
	matches   services.MatchmakingService
	reports   services.ReportService
	feedback  services.FeedbackService
}

func initializeCollaborators(cfg *config.ProductionConfig, rc *redis.Client, logger zerolog.Logger) collaborators {
	var c collaborators
	switch cfg.Backend.Provider {
	case "mock":
		c = collaborators{
			profiles:  services.NewMockProfileService(nil),
			interests: services.NewMockInterestService(services.StarterInterests),
			matches:   services.NewMockMatchmakingService(services.DemoRecommendations()),
			reports:   services.NewMockReportService(),
			feedback:  services.NewMockFeedbackService(models.FeedbackMilestoneDay2),
		}
		logger.Warn().Msg("Using mock backend collaborators")
	default:
		backend := services.NewBackendClient(&cfg.Backend)
		c = collaborators{
			profiles:  services.NewProfileService(backend),
			interests: services.NewInterestService(backend),
			matches:   services.NewMatchmakingService(backend),
			reports:   services.NewReportService(backend),
			feedback:  services.NewFeedbackService(backend),
		}
		logger.Info().Str("api_url", cfg.Backend.APIURL).Msg("Backend client initialized")
	}

	if rc != nil {
		c.interests = services.NewCachedInterestService(c.interests, rc, cfg.Cache.RedisPrefix, cfg.Cache.InterestTTL, logger)
	}
	return c
}

func initializeApplication(cfg *config.ProductionConfig, logger zerolog.Logger) (*Application, error) {
	var stopFuncs []func()

	rc, err := initializeCache(cfg.Cache, logger)
	if err != nil {
		return nil, err
	}
	if rc != nil {
		cancel := startCacheHealthMonitor(context.Background(), rc, cfg.Cache.HealthInterval, logger)
		stopFuncs = append(stopFuncs, cancel, func() { _ = rc.Close() })
	}

	tokenService, err := services.NewTokenService(cfg.JWT.SecretKey, cfg.JWT.Issuer, cfg.JWT.Audience)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}
	logger.Info().Str("issuer", cfg.JWT.Issuer).Str("audience", cfg.JWT.Audience).Msg("Token service initialized")

	c := initializeCollaborators(cfg, rc, logger)

	var ledger businessflow.DispatchLedger
	if cfg.WhatsApp.Ledger == "redis" && rc != nil {
		ledger = businessflow.NewRedisDispatchLedger(rc, cfg.Cache.RedisPrefix)
	} else {
		ledger = businessflow.NewMemoryDispatchLedger()
	}

	registry := businessflow.NewDraftSessionRegistry(businessflow.DraftSessionDeps{
		Profiles:          c.profiles,
		Interests:         c.interests,
		Matches:           c.matches,
		Feedback:          c.feedback,
		Encoder:           services.NewImagePhotoEncoder(&cfg.Photo),
		Ledger:            ledger,
		Limits:            businessflow.ProfileLimitsFromConfig(&cfg.Profile),
		SavedStatusWindow: cfg.Profile.SavedStatusWindow,
		Dispatch: businessflow.WhatsAppDispatcherOptions{
			DebounceWindow:  cfg.WhatsApp.DebounceWindow,
			DesktopEndpoint: cfg.WhatsApp.DesktopEndpoint,
			Hosts:           cfg.WhatsApp.Hosts,
		},
		IdleTTL: cfg.Session.IdleTTL,
		Logger:  logger,
	})
	stopFuncs = append(stopFuncs, registry.StartSweeper(cfg.Session.SweepInterval))

	reportFlow := businessflow.NewReportFlow(c.reports, logger)

	authMiddleware := middleware.NewAuthMiddleware(tokenService)
	fiberRouter := router.NewFiberRouter(cfg, logger, authMiddleware, router.Handlers{
		Draft:    handlers.NewDraftHandler(registry),
		Interest: handlers.NewInterestHandler(registry),
		Match:    handlers.NewMatchHandler(registry),
		Report:   handlers.NewReportHandler(reportFlow),
		Feedback: handlers.NewFeedbackHandler(registry),
	})
	if rc != nil {
		fiberRouter.AddHealthCheck("redis", func(ctx context.Context) error {
			return rc.Ping(ctx).Err()
		})
	}

	return &Application{
		router:    fiberRouter,
		config:    cfg,
		server:    fiberRouter.GetApp(),
		logger:    logger,
		stopFuncs: stopFuncs,
	}, nil
}

func closeQuietly(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}
