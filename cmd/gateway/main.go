package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/dmontero/cambiomap/internal/adapters/geocode"
	gateway "github.com/dmontero/cambiomap/internal/adapters/http"
	natsadapter "github.com/dmontero/cambiomap/internal/adapters/nats"
	"github.com/dmontero/cambiomap/internal/adapters/officesapi"
	"github.com/dmontero/cambiomap/internal/adapters/valkey"
	"github.com/dmontero/cambiomap/internal/core/domain"
	"github.com/dmontero/cambiomap/internal/core/usecases"
	"github.com/dmontero/cambiomap/internal/pkg/config"
	"github.com/dmontero/cambiomap/internal/pkg/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup(logLevel, "json")

	deps := &gateway.Dependencies{
		Searcher: officesapi.New(cfg.Upstream.BaseURL, cfg.Upstream.TimeoutSeconds),
		Geocoder: geocode.New(cfg.Geocoder.BaseURL, cfg.Geocoder.TimeoutSeconds),
		Policy: usecases.MovementPolicy{
			CenterShiftFraction: cfg.Movement.CenterShiftFraction,
			MinShiftMeters:      cfg.Movement.MinShiftMeters,
			SizeChangeRatio:     cfg.Movement.SizeChangeRatio,
			QuietPeriod:         cfg.Movement.QuietPeriod(),
		},
		Session: usecases.SessionConfig{
			DefaultCenter:   domain.Coordinate{Lat: cfg.Search.DefaultLat, Lng: cfg.Search.DefaultLng},
			DefaultRadiusKm: cfg.Search.DefaultRadiusKm,
			BaseCurrency:    cfg.Search.BaseCurrency,
			TargetCurrency:  cfg.Search.TargetCurrency,
			PageSize:        cfg.Search.PageSize,
			ShowBestOffice:  cfg.Search.ShowBestOffice,
		},
		CacheTTLSeconds: cfg.Search.CacheTTLSeconds,
	}

	// Cache (optional — sessions work without it)
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer cache.Close()
		deps.Cache = cache
	}

	// NATS (optional — search events just stay local)
	publisher, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer publisher.Close()
		deps.Publisher = publisher
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "CambioMap Gateway",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173, https://*.cambiomap.app",
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	gateway.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("gateway starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("gateway stopped")
}
