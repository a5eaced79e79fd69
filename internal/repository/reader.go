package repository

import (
	"context"

	"dailypages/internal/model"
)

// ReaderRepository reads reader records. Readers are created by SubscriptionRepository.Upsert.
type ReaderRepository interface {
	// FindByEmail returns a reader by email. A missing row is reported as sql.ErrNoRows.
	FindByEmail(ctx context.Context, email string) (*model.Reader, error)
}
