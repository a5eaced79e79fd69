package mocks

import (
	"context"

	"dailypages/internal/model"
	"github.com/stretchr/testify/mock"
)

type MockReaderRepository struct {
	mock.Mock
}

func (m *MockReaderRepository) FindByEmail(ctx context.Context, email string) (*model.Reader, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Reader), args.Error(1)
}
