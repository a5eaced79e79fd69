package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"dailypages/internal/model"
	"dailypages/internal/repository"
)

var _ repository.DocumentRepository = (*MockDocumentRepository)(nil)

// MockDocumentRepository is a testify mock of repository.DocumentRepository.
// Create also accepts a func(*model.Document) *model.Document return value to echo its input.
type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	args := m.Called(ctx, doc)
	switch v := args.Get(0).(type) {
	case func(*model.Document) *model.Document:
		return v(doc), args.Error(1)
	case *model.Document:
		return v, args.Error(1)
	default:
		return nil, args.Error(1)
	}
}

func (m *MockDocumentRepository) FindByID(ctx context.Context, id string) (*model.Document, error) {
	args := m.Called(ctx, id)
	doc, _ := args.Get(0).(*model.Document)
	return doc, args.Error(1)
}

func (m *MockDocumentRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockDocumentRepository) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.DocumentInfo], error) {
	args := m.Called(ctx, pq)
	page, _ := args.Get(0).(*repository.PageResult[model.DocumentInfo])
	return page, args.Error(1)
}
