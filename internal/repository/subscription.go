package repository

import (
	"context"
	"errors"
	"iter"
	"time"

	"dailypages/internal/model"
)

var (
	// ErrScopeUnavailable wraps a failure to run the scope query at all. A pass that sees it must abort.
	ErrScopeUnavailable = errors.New("subscription scope unavailable")
	// ErrCursorConflict is returned when the stored cursor no longer matches the expected value.
	ErrCursorConflict = errors.New("subscription cursor changed concurrently")
	// ErrUnknownReference is returned when a subscription refers to a document that does not exist.
	ErrUnknownReference = errors.New("subscription references unknown document")
)

// SubscriptionRepository is the Subscription Ledger: per (reader, document) cursor and activity flag.
type SubscriptionRepository interface {
	// ListActive lazily yields the active subscriptions in scope. A failure to query the scope is
	// yielded once, wrapped in ErrScopeUnavailable, and ends the sequence; a failure to read a single
	// row is yielded and the sequence continues with the next row.
	ListActive(ctx context.Context, scope model.Scope) iter.Seq2[model.Subscription, error]

	// FindByID returns a subscription by ID. A missing row is reported as sql.ErrNoRows.
	FindByID(ctx context.Context, id string) (*model.Subscription, error)

	// ListByReader returns all subscriptions of a reader, active or not.
	ListByReader(ctx context.Context, email string) ([]model.Subscription, error)

	// Upsert creates the reader if absent and a subscription with cursor 1 if none exists for the
	// pair. An existing subscription is returned untouched with created=false.
	Upsert(ctx context.Context, email, documentID string, pageLength int, now time.Time) (sub *model.Subscription, created bool, err error)

	// AdvanceCursor increments the cursor by the given amount if it still equals from,
	// and stamps the access date. It returns ErrCursorConflict otherwise.
	AdvanceCursor(ctx context.Context, id string, from, by int, now time.Time) error

	// SetActive flips the activity flag. Inactive subscriptions are kept but never scheduled.
	SetActive(ctx context.Context, id string, active bool) error
}
