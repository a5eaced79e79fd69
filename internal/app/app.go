// Package app assembles the delivery pipeline shared by the HTTP server and the sendpages CLI.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"dailypages/internal/config"
	"dailypages/internal/database"
	"dailypages/internal/database/migration"
	"dailypages/internal/delivery"
	"dailypages/internal/extract"
	"dailypages/internal/mail"
	"dailypages/internal/repository/postgres"
	"dailypages/internal/service"
	"dailypages/internal/storage"
)

// App holds the long-lived dependencies of a running process.
type App struct {
	DB       *sql.DB
	Registry *prometheus.Registry
	Engine   *delivery.Engine

	Documents     service.DocumentService
	Subscriptions service.SubscriptionService
	Deliveries    service.DeliveryService
}

// New connects to the database, applies migrations, and wires repositories, the object store,
// the mail sender, the delivery engine and the services. The caller owns Close.
func New(ctx context.Context, cfg *config.AppConfig, log *zap.Logger) (*App, error) {
	if err := cfg.Delivery.Validate(); err != nil {
		return nil, err
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	a, err := wire(ctx, cfg, db, log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return a, nil
}

func wire(ctx context.Context, cfg *config.AppConfig, db *sql.DB, log *zap.Logger) (*App, error) {
	if err := migration.EnsureMigrated(ctx, db, log, cfg.Database.Host); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	store, err := storage.New(ctx, cfg.ObjectStore)
	if err != nil {
		return nil, fmt.Errorf("initialize object storage: %w", err)
	}

	sender, err := newSender(cfg.Mail, log)
	if err != nil {
		return nil, fmt.Errorf("initialize mail sender: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := delivery.NewMetrics(reg)
	if err != nil {
		return nil, fmt.Errorf("register delivery metrics: %w", err)
	}

	docs := postgres.NewDocumentPostgres(db)
	subs := postgres.NewSubscriptionPostgres(db)
	readers := postgres.NewReaderPostgres(db)
	deliveries := postgres.NewDeliveryPostgres(db)

	engine := delivery.NewEngine(subs, docs, deliveries, sender, delivery.ConfigFrom(cfg.Delivery, cfg.Mail), metrics, log)
	pageLength := cfg.Delivery.PageLength

	return &App{
		DB:       db,
		Registry: reg,
		Engine:   engine,
		Documents: service.NewDocumentService(
			store,
			extract.NewDocconvExtractor(false),
			docs,
			subs,
			engine,
			pageLength,
			int64(cfg.MaxUploadBytes),
			log,
		),
		Subscriptions: service.NewSubscriptionService(subs, readers, deliveries, engine, pageLength, log),
		Deliveries:    service.NewDeliveryService(engine),
	}, nil
}

// newSender builds the sender named by MAIL_BACKEND. SendGrid without an API key is a
// configuration error rather than a silent fallback to logging.
func newSender(cfg config.MailConfig, log *zap.Logger) (mail.Sender, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "sendgrid":
		return mail.NewSendGridSender(cfg)
	case "log":
		log.Warn("mail_sender_log_only", zap.String("reason", "MAIL_BACKEND=log, messages are logged and not delivered"))
		return mail.NewLogSender(log), nil
	default:
		return nil, fmt.Errorf("unknown mail backend %q", cfg.Backend)
	}
}

// Close releases the database pool.
func (a *App) Close() error {
	return a.DB.Close()
}
