package postgres

import (
	"context"
	"database/sql"
	"errors"

	"dailypages/internal/model"
	"dailypages/internal/repository"
)

// DeliveryPostgres is a PostgreSQL implementation of repository.DeliveryRepository.
type DeliveryPostgres struct {
	db *sql.DB
}

// NewDeliveryPostgres creates a new DeliveryPostgres repository.
func NewDeliveryPostgres(db *sql.DB) *DeliveryPostgres {
	return &DeliveryPostgres{db: db}
}

var _ repository.DeliveryRepository = (*DeliveryPostgres)(nil)

// Record inserts one delivery log row.
func (r *DeliveryPostgres) Record(ctx context.Context, d *model.Delivery) error {
	if d == nil {
		return errors.New("nil delivery")
	}
	const q = `
		INSERT INTO deliveries (id, subscription_id, status, attempts, page_start, page_end, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, q,
		d.ID,
		d.SubscriptionID,
		string(d.Status),
		d.Attempts,
		d.PageStart,
		d.PageEnd,
		d.Error,
		d.CreatedAt,
	)
	return err
}

// ListBySubscription returns the newest deliveries of a subscription first.
func (r *DeliveryPostgres) ListBySubscription(ctx context.Context, subscriptionID string, limit int) ([]model.Delivery, error) {
	const q = `
		SELECT id, subscription_id, status, attempts, page_start, page_end, error, created_at
		FROM deliveries
		WHERE subscription_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, q, subscriptionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Delivery, 0)
	for rows.Next() {
		var d model.Delivery
		var status string
		if err := rows.Scan(
			&d.ID,
			&d.SubscriptionID,
			&status,
			&d.Attempts,
			&d.PageStart,
			&d.PageEnd,
			&d.Error,
			&d.CreatedAt,
		); err != nil {
			return nil, err
		}
		d.Status = model.DeliveryStatus(status)
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
