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
	"github.com/gofiber/fiber/v2/middleware/limiter"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	httpapi "github.com/i474232898/weather-lookup/internal/api/http"
	"github.com/i474232898/weather-lookup/internal/config"
	"github.com/i474232898/weather-lookup/internal/geocoding"
	"github.com/i474232898/weather-lookup/internal/logger"
	"github.com/i474232898/weather-lookup/internal/metrics"
	"github.com/i474232898/weather-lookup/internal/scheduler"
	"github.com/i474232898/weather-lookup/internal/store"
	"github.com/i474232898/weather-lookup/internal/weather"
	"github.com/i474232898/weather-lookup/internal/weather/providers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zl, err := logger.New(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File})
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()
	sugar := zl.Sugar()

	if cfg.Google.MapsAPIKey == "" {
		sugar.Warn("google maps api key is not set; location searches will fail upstream")
	}

	db, err := store.Open(cfg.Database.URL, store.Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		LogQueries:      cfg.Database.LogQueries,
		Logger:          zl,
	})
	if err != nil {
		sugar.Fatalw("failed to open database", "err", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Migrate(); err != nil {
		sugar.Fatalw("failed to migrate database", "err", err)
	}
	if n, err := db.SeedLocationsFile(context.Background(), cfg.Database.SeedFile); err != nil {
		sugar.Errorw("location seed failed", "file", cfg.Database.SeedFile, "err", err)
	} else if n > 0 {
		sugar.Infow("seeded locations", "count", n)
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{Timeout: cfg.Google.Timeout}
	backoff := providers.DefaultBackoff()
	backoff.MaxRetries = cfg.Google.MaxRetries

	geocoder := providers.NewGoogleGeocodingClient(httpClient, cfg.Google.MapsAPIKey, cfg.Google.GeocodingURL, backoff)
	weatherClient := providers.NewGoogleWeatherClient(httpClient, cfg.Google.WeatherAPIKey, cfg.Google.WeatherURL, backoff)
	sugar.Infow("upstream providers configured",
		"geocoding", geocoder.Name(),
		"weather", weatherClient.Name(),
		"max_retries", backoff.MaxRetries,
	)

	locationService := geocoding.NewService(db, geocoder,
		geocoding.WithTolerance(cfg.Cache.Tolerance),
		geocoding.WithSearchLimit(cfg.Cache.SearchLimit),
		geocoding.WithLogger(sugar.Named("geocoding")),
	)
	weatherService := weather.NewService(db, weatherClient,
		weather.WithTTL(cfg.Cache.TTL),
		weather.WithLogger(sugar.Named("weather")),
	)

	if cfg.Scheduler.Enabled {
		sched := scheduler.New(weatherService, db, scheduler.Options{
			Interval:        cfg.Scheduler.Interval,
			HistoryMaxAge:   cfg.Scheduler.HistoryMaxAge,
			WarmLocationIDs: cfg.Scheduler.WarmLocationIDs,
			WarmWorkers:     cfg.Scheduler.WarmWorkers,
		}, zl)
		if err := sched.Start(); err != nil {
			sugar.Fatalw("failed to start scheduler", "err", err)
		}
		defer sched.Stop()
	}

	app := fiber.New(fiber.Config{
		AppName:               "weather-lookup",
		DisableStartupMessage: true,
		ReadTimeout:           cfg.HTTP.ReadTimeout,
		WriteTimeout:          cfg.HTTP.WriteTimeout,
		ErrorHandler:          httpapi.ErrorHandler(sugar.Named("http")),
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} ${locals:requestid} ${status} ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{AllowOrigins: cfg.HTTP.CORSOrigins}))
	app.Use(metrics.Middleware())

	app.Get("/health", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status":  "degraded",
				"service": "weather-lookup",
			})
		}
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-lookup",
		})
	})
	app.Get("/metrics", metrics.Handler())

	if cfg.HTTP.RateLimitMax > 0 {
		app.Use("/api", limiter.New(limiter.Config{
			Max:        cfg.HTTP.RateLimitMax,
			Expiration: cfg.HTTP.RateLimitWindow,
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
					"success": false,
					"error":   true,
					"message": "Too many requests; please slow down",
				})
			},
		}))
	}

	httpapi.RegisterRoutes(app, locationService, weatherService)

	go func() {
		sugar.Infow("http server listening", "addr", cfg.Addr())
		if err := app.Listen(cfg.Addr()); err != nil {
			sugar.Errorw("fiber server stopped", "err", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	sugar.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		sugar.Errorw("error during shutdown", "err", err)
	}
}
