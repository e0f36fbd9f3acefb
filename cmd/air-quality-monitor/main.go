package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "air-quality-monitor/internal/api/http"
	"air-quality-monitor/internal/airquality"
	"air-quality-monitor/internal/airquality/openaq"
	"air-quality-monitor/internal/config"
	"air-quality-monitor/internal/geo"
	"air-quality-monitor/internal/scheduler"
	"air-quality-monitor/internal/store"
)

func main() {
	// Load configuration (.env included).
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if cfg.OpenAQAPIKey == "" {
		log.Printf("WARN: OPENAQ_API_KEY is not set; fetches will fail with a config error")
	}

	// Shared HTTP client for outbound calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Process-wide result cache with configured keying and retention.
	cache := store.NewCache(cfg.CacheBucket, cfg.CacheMaxEntries, cfg.CacheMaxAge)

	// Optional city -> coordinates narrowing for station queries.
	var resolver airquality.CoordinateResolver
	if cfg.GeocoderAPIKey != "" {
		resolver = geo.NewGoogleResolver(cfg.GeocoderAPIKey)
	}

	// Measurement client with resilience (backoff + circuit breaker).
	client := openaq.NewClient(httpClient, openaq.ClientConfig{
		APIKey:   cfg.OpenAQAPIKey,
		BaseURL:  cfg.BaseURL,
		Limit:    cfg.FetchLimit,
		Resolver: resolver,
	})

	// Core service: cached fetch plus cleaning.
	service := airquality.NewService(client, cache)

	// Scheduler that keeps the configured cities warm.
	sched := scheduler.New(cfg.Cities, cfg.RefreshInterval, service)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "air-quality-monitor",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())
	app.Use(cors.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":       "ok",
			"service":      "air-quality-monitor",
			"cacheEntries": cache.Len(),
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, service, cfg.Cities)

	log.Printf("INFO: listening on port %s (cities: %d, refresh every %s)",
		cfg.Port, len(cfg.Cities), cfg.RefreshInterval)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
