package mocks

import (
	"context"

	"dailypages/internal/model"
	"dailypages/internal/service"
	"github.com/stretchr/testify/mock"
)

type MockSubscriptionService struct {
	mock.Mock
}

func (m *MockSubscriptionService) Subscribe(ctx context.Context, email, documentID string, pageLength int) (*service.SubscribeResult, error) {
	args := m.Called(ctx, email, documentID, pageLength)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SubscribeResult), args.Error(1)
}

func (m *MockSubscriptionService) SetActive(ctx context.Context, id string, active bool) (*model.Subscription, error) {
	args := m.Called(ctx, id, active)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Subscription), args.Error(1)
}

func (m *MockSubscriptionService) ListByReader(ctx context.Context, email string) (*service.ReaderSubscriptions, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ReaderSubscriptions), args.Error(1)
}

func (m *MockSubscriptionService) Deliveries(ctx context.Context, id string, limit int) ([]model.Delivery, error) {
	args := m.Called(ctx, id, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Delivery), args.Error(1)
}
