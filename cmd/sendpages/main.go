// Command sendpages runs one delivery pass immediately and prints its report.
//
//	sendpages ALL
//	sendpages reader@example.com
//	sendpages reader@example.com --document 6f1c...
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"

	"dailypages/internal/app"
	"dailypages/internal/config"
	"dailypages/internal/logger"
)

func main() {
	cfg := config.Load()

	zl, err := logger.New(cfg.Log.Environment, cfg.Log.Level)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd(func(ctx context.Context) (trigger, func() error, error) {
		a, err := app.New(ctx, cfg, zl)
		if err != nil {
			return nil, nil, err
		}
		return a.Deliveries, a.Close, nil
	})
	if err := cmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
