package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"dailypages/internal/delivery"
	"dailypages/internal/model"
	"dailypages/internal/repository"
)

const defaultDeliveryHistory = 20

// SubscribeResult reports the subscription a Subscribe call ended with.
type SubscribeResult struct {
	Subscription  *model.Subscription `json:"subscription"`
	Created       bool                `json:"created"`
	FirstDelivery *delivery.Report    `json:"first_delivery,omitempty"`
}

// ReaderSubscriptions is a reader with all of their subscriptions.
type ReaderSubscriptions struct {
	Reader        *model.Reader        `json:"reader"`
	Subscriptions []model.Subscription `json:"subscriptions"`
}

// SubscriptionService manages the reader-to-document subscriptions.
type SubscriptionService interface {
	// Subscribe creates the reader and subscription if needed. A new subscription receives
	// its first page immediately; an existing one is returned untouched.
	Subscribe(ctx context.Context, email, documentID string, pageLength int) (*SubscribeResult, error)

	// SetActive pauses or resumes a subscription.
	SetActive(ctx context.Context, id string, active bool) (*model.Subscription, error)

	// ListByReader returns a reader and every subscription they hold.
	ListByReader(ctx context.Context, email string) (*ReaderSubscriptions, error)

	// Deliveries returns the most recent delivery log rows of a subscription.
	Deliveries(ctx context.Context, id string, limit int) ([]model.Delivery, error)
}

type subscriptionService struct {
	subs       repository.SubscriptionRepository
	readers    repository.ReaderRepository
	deliveries repository.DeliveryRepository
	runner     DeliveryRunner
	pageLength int
	log        *zap.Logger
}

// NewSubscriptionService constructs a new SubscriptionService.
func NewSubscriptionService(
	subs repository.SubscriptionRepository,
	readers repository.ReaderRepository,
	deliveries repository.DeliveryRepository,
	runner DeliveryRunner,
	pageLength int,
	log *zap.Logger,
) SubscriptionService {
	return &subscriptionService{
		subs:       subs,
		readers:    readers,
		deliveries: deliveries,
		runner:     runner,
		pageLength: pageLength,
		log:        log,
	}
}

func (s *subscriptionService) Subscribe(ctx context.Context, email, documentID string, pageLength int) (*SubscribeResult, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if documentID == "" {
		return nil, ErrIDRequired
	}
	switch {
	case pageLength == 0:
		pageLength = s.pageLength
	case pageLength < 0:
		return nil, ErrInvalidPageLength
	}

	sub, created, err := s.subs.Upsert(ctx, email, documentID, pageLength, time.Now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrUnknownReference) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	res := &SubscribeResult{Subscription: sub, Created: created}
	if created {
		res.FirstDelivery = firstDelivery(ctx, s.runner, s.log, email, documentID)
	}
	return res, nil
}

func (s *subscriptionService) SetActive(ctx context.Context, id string, active bool) (*model.Subscription, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	if err := s.subs.SetActive(ctx, id, active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return s.subs.FindByID(ctx, id)
}

func (s *subscriptionService) ListByReader(ctx context.Context, email string) (*ReaderSubscriptions, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	reader, err := s.readers.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReaderNotFound
		}
		return nil, err
	}
	subs, err := s.subs.ListByReader(ctx, email)
	if err != nil {
		return nil, err
	}
	return &ReaderSubscriptions{Reader: reader, Subscriptions: subs}, nil
}

func (s *subscriptionService) Deliveries(ctx context.Context, id string, limit int) ([]model.Delivery, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	if limit <= 0 || limit > 100 {
		limit = defaultDeliveryHistory
	}
	if _, err := s.subs.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return s.deliveries.ListBySubscription(ctx, id, limit)
}
