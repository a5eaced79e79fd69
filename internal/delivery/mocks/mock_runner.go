package mocks

import (
	"context"

	"dailypages/internal/delivery"
	"dailypages/internal/model"
	"github.com/stretchr/testify/mock"
)

type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Run(ctx context.Context, scope model.Scope, trigger delivery.Trigger) (*delivery.Report, error) {
	args := m.Called(ctx, scope, trigger)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*delivery.Report), args.Error(1)
}
