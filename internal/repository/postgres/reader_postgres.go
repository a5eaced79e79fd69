package postgres

import (
	"context"
	"database/sql"

	"dailypages/internal/model"
	"dailypages/internal/repository"
)

// ReaderPostgres is a PostgreSQL implementation of repository.ReaderRepository.
type ReaderPostgres struct {
	db *sql.DB
}

// NewReaderPostgres creates a new ReaderPostgres repository.
func NewReaderPostgres(db *sql.DB) *ReaderPostgres {
	return &ReaderPostgres{db: db}
}

var _ repository.ReaderRepository = (*ReaderPostgres)(nil)

// FindByEmail fetches a reader by email address.
func (r *ReaderPostgres) FindByEmail(ctx context.Context, email string) (*model.Reader, error) {
	const q = `SELECT email, signup_date, is_premium FROM readers WHERE email = $1`
	var rd model.Reader
	if err := r.db.QueryRowContext(ctx, q, email).Scan(&rd.Email, &rd.SignupDate, &rd.IsPremium); err != nil {
		return nil, err
	}
	return &rd, nil
}
