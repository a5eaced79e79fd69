package repository

import (
	"context"

	"dailypages/internal/model"
)

// DocumentRepository persists extracted documents. Text is written once at upload and only
// read afterwards.
type DocumentRepository interface {
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	// FindByID loads the full text. A missing row is reported as sql.ErrNoRows.
	FindByID(ctx context.Context, id string) (*model.Document, error)

	// Delete removes a document nobody subscribes to yet. It undoes Create when the upload
	// cannot be completed.
	Delete(ctx context.Context, id string) error

	// List pages through document metadata, newest first.
	List(ctx context.Context, pq PageQuery) (*PageResult[model.DocumentInfo], error)
}

// PageQuery selects one LIMIT/OFFSET window.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is one window of rows plus the row count of the whole listing.
type PageResult[T any] struct {
	Items []T
	Total int
}
