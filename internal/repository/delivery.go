package repository

import (
	"context"

	"dailypages/internal/model"
)

// DeliveryRepository is the append-only delivery log.
type DeliveryRepository interface {
	// Record appends one delivery outcome.
	Record(ctx context.Context, d *model.Delivery) error

	// ListBySubscription returns the most recent deliveries of a subscription, newest first.
	ListBySubscription(ctx context.Context, subscriptionID string, limit int) ([]model.Delivery, error)
}
