package mocks

import (
	"context"

	"dailypages/internal/delivery"
	"github.com/stretchr/testify/mock"
)

type MockDeliveryService struct {
	mock.Mock
}

func (m *MockDeliveryService) Trigger(ctx context.Context, email, documentID string) (*delivery.Report, error) {
	args := m.Called(ctx, email, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*delivery.Report), args.Error(1)
}
