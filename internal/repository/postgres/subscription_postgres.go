package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"dailypages/internal/model"
	"dailypages/internal/repository"
)

// foreignKeyViolation is the SQLSTATE Postgres reports for a dangling reference.
const foreignKeyViolation = "23503"

const subscriptionColumns = `id, reader_email, document_id, cursor_position, page_length, access_date, is_active`

// SubscriptionPostgres is a PostgreSQL implementation of repository.SubscriptionRepository.
type SubscriptionPostgres struct {
	db *sql.DB
}

// NewSubscriptionPostgres creates a new SubscriptionPostgres repository.
func NewSubscriptionPostgres(db *sql.DB) *SubscriptionPostgres {
	return &SubscriptionPostgres{db: db}
}

var _ repository.SubscriptionRepository = (*SubscriptionPostgres)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row rowScanner) (model.Subscription, error) {
	var s model.Subscription
	err := row.Scan(
		&s.ID,
		&s.ReaderEmail,
		&s.DocumentID,
		&s.Cursor,
		&s.PageLength,
		&s.AccessDate,
		&s.IsActive,
	)
	return s, err
}

func scopeQuery(scope model.Scope) (string, []any) {
	base := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE is_active`
	switch scope.Kind {
	case model.ScopeReader:
		return base + ` AND reader_email = $1`, []any{scope.ReaderEmail}
	case model.ScopeSubscription:
		return base + ` AND reader_email = $1 AND document_id = $2`, []any{scope.ReaderEmail, scope.DocumentID}
	default:
		return base, nil
	}
}

// ListActive streams the active subscriptions of a scope straight from the result set.
func (r *SubscriptionPostgres) ListActive(ctx context.Context, scope model.Scope) iter.Seq2[model.Subscription, error] {
	return func(yield func(model.Subscription, error) bool) {
		q, args := scopeQuery(scope)
		rows, err := r.db.QueryContext(ctx, q, args...)
		if err != nil {
			yield(model.Subscription{}, fmt.Errorf("%w: %v", repository.ErrScopeUnavailable, err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			s, err := scanSubscription(rows)
			if err != nil {
				err = fmt.Errorf("scan subscription: %w", err)
			}
			if !yield(s, err) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(model.Subscription{}, fmt.Errorf("iterate subscriptions: %w", err))
		}
	}
}

// FindByID fetches a single subscription by its ID.
func (r *SubscriptionPostgres) FindByID(ctx context.Context, id string) (*model.Subscription, error) {
	q := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1`
	s, err := scanSubscription(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListByReader returns every subscription of a reader, most recently accessed first.
func (r *SubscriptionPostgres) ListByReader(ctx context.Context, email string) ([]model.Subscription, error) {
	q := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE reader_email = $1 ORDER BY access_date DESC, id`
	rows, err := r.db.QueryContext(ctx, q, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Subscription, 0)
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Upsert creates the reader and the subscription in one transaction, leaving existing rows untouched.
func (r *SubscriptionPostgres) Upsert(ctx context.Context, email, documentID string, pageLength int, now time.Time) (*model.Subscription, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const qReader = `
		INSERT INTO readers (email, signup_date, is_premium)
		VALUES ($1, $2, FALSE)
		ON CONFLICT (email) DO NOTHING
	`
	if _, err := tx.ExecContext(ctx, qReader, email, now); err != nil {
		return nil, false, fmt.Errorf("insert reader: %w", err)
	}

	const qSub = `
		INSERT INTO subscriptions (id, reader_email, document_id, cursor_position, page_length, access_date, is_active)
		VALUES ($1, $2, $3, 1, $4, $5, TRUE)
		ON CONFLICT (reader_email, document_id) DO NOTHING
	`
	res, err := tx.ExecContext(ctx, qSub, uuid.NewString(), email, documentID, pageLength, now)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return nil, false, repository.ErrUnknownReference
		}
		return nil, false, fmt.Errorf("insert subscription: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("rows affected: %w", err)
	}

	q := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE reader_email = $1 AND document_id = $2`
	s, err := scanSubscription(tx.QueryRowContext(ctx, q, email, documentID))
	if err != nil {
		return nil, false, fmt.Errorf("read subscription: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit: %w", err)
	}
	return &s, affected == 1, nil
}

// AdvanceCursor moves the cursor forward with a compare-and-set on its current value.
func (r *SubscriptionPostgres) AdvanceCursor(ctx context.Context, id string, from, by int, now time.Time) error {
	const q = `
		UPDATE subscriptions
		SET cursor_position = cursor_position + $2, access_date = $3
		WHERE id = $1 AND cursor_position = $4
	`
	res, err := r.db.ExecContext(ctx, q, id, by, now, from)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrCursorConflict
	}
	return nil
}

// SetActive updates the activity flag. A missing row is reported as sql.ErrNoRows.
func (r *SubscriptionPostgres) SetActive(ctx context.Context, id string, active bool) error {
	const q = `UPDATE subscriptions SET is_active = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id, active)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
