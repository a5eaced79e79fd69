package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	_ "github.com/joho/godotenv/autoload"
	"go.uber.org/zap"

	"dailypages/internal/app"
	"dailypages/internal/config"
	handlers "dailypages/internal/http/handler"
	"dailypages/internal/http/middleware"
	"dailypages/internal/logger"
	"dailypages/internal/otel"
	"dailypages/internal/scheduler"
)

const (
	shutdownTimeout = 30 * time.Second
	// multipartOverhead leaves room for form boundaries and fields around the file itself.
	multipartOverhead = 1 << 20
)

func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	zl, err := logger.New(cfg.Log.Environment, cfg.Log.Level)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server_failed", zap.Error(err))
	}
}

func run(cfg *config.AppConfig, zl *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, cfg.Tracing, zl)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			zl.Warn("tracing_shutdown_failed", zap.Error(err))
		}
	}()

	a, err := app.New(ctx, cfg, zl)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			zl.Warn("db_close_failed", zap.Error(err))
		}
	}()

	if cfg.Scheduler.Enabled {
		loc, err := cfg.Scheduler.Location()
		if err != nil {
			return err
		}
		sched := scheduler.New(a.Engine, cfg.Scheduler.Spec, loc, zl)
		if err := sched.Start(ctx); err != nil {
			return err
		}
		defer sched.Stop()
	}

	promMiddleware, err := middleware.NewPrometheusMiddleware(a.Registry)
	if err != nil {
		return err
	}

	server := fiber.New(fiber.Config{
		ErrorHandler:          handlers.ErrorHandler(),
		BodyLimit:             cfg.MaxUploadBytes + multipartOverhead,
		DisableStartupMessage: true,
	})

	// RequestID first so every later middleware and handler can read it
	server.Use(middleware.RequestID())
	server.Use(otelfiber.Middleware())
	server.Use(middleware.Logger(zl))
	server.Use(promMiddleware.Handler())

	handlers.RegisterRoutes(server, a.DB, a.Registry, handlers.Services{
		Documents:     a.Documents,
		Subscriptions: a.Subscriptions,
		Deliveries:    a.Deliveries,
	})

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		zl.Info("server_listening", zap.String("addr", addr))
		errCh <- server.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zl.Info("server_shutdown")
	if err := server.ShutdownWithTimeout(shutdownTimeout); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}
