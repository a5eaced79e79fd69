package mocks

import (
	"context"
	"iter"
	"time"

	"dailypages/internal/model"
	"github.com/stretchr/testify/mock"
)

type MockSubscriptionRepository struct {
	mock.Mock
}

// ListActive yields the []model.Subscription returned by the expectation, followed by its error if set.
func (m *MockSubscriptionRepository) ListActive(ctx context.Context, scope model.Scope) iter.Seq2[model.Subscription, error] {
	args := m.Called(ctx, scope)
	subs, _ := args.Get(0).([]model.Subscription)
	err := args.Error(1)
	return func(yield func(model.Subscription, error) bool) {
		for _, s := range subs {
			if !yield(s, nil) {
				return
			}
		}
		if err != nil {
			yield(model.Subscription{}, err)
		}
	}
}

func (m *MockSubscriptionRepository) FindByID(ctx context.Context, id string) (*model.Subscription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) ListByReader(ctx context.Context, email string) ([]model.Subscription, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) Upsert(ctx context.Context, email, documentID string, pageLength int, now time.Time) (*model.Subscription, bool, error) {
	args := m.Called(ctx, email, documentID, pageLength, now)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*model.Subscription), args.Bool(1), args.Error(2)
}

func (m *MockSubscriptionRepository) AdvanceCursor(ctx context.Context, id string, from, by int, now time.Time) error {
	args := m.Called(ctx, id, from, by, now)
	return args.Error(0)
}

func (m *MockSubscriptionRepository) SetActive(ctx context.Context, id string, active bool) error {
	args := m.Called(ctx, id, active)
	return args.Error(0)
}
