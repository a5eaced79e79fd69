package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"

	"dailypages/internal/service"
)

// Services groups the use cases exposed over HTTP.
type Services struct {
	Documents     service.DocumentService
	Subscriptions service.SubscriptionService
	Deliveries    service.DeliveryService
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, db *sql.DB, gatherer prometheus.Gatherer, svc Services) {
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", Liveness())
	app.Get("/metrics", Metrics(gatherer))

	app.Get("/documents", ListDocuments(svc.Documents))
	app.Post("/documents", UploadDocument(svc.Documents))
	app.Get("/documents/:id", GetDocument(svc.Documents))
	app.Get("/documents/:id/source", DocumentSource(svc.Documents))

	app.Post("/subscriptions", Subscribe(svc.Subscriptions))
	app.Patch("/subscriptions/:id", SetSubscriptionActive(svc.Subscriptions))
	app.Get("/subscriptions/:id/deliveries", ListDeliveries(svc.Subscriptions))
	app.Get("/readers/:email/subscriptions", ReaderSubscriptions(svc.Subscriptions))

	app.Post("/deliveries", TriggerDelivery(svc.Deliveries))
}
