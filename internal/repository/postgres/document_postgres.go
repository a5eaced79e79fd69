package postgres

import (
	"context"
	"database/sql"

	"dailypages/internal/model"
	"dailypages/internal/repository"
)

// DocumentPostgres stores extracted book text. Rows are written once and never updated.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

func scanDocumentInfo(row rowScanner, extra ...any) (model.DocumentInfo, error) {
	var d model.DocumentInfo
	dest := append([]any{&d.ID, &d.Title, &d.Length, &d.StoragePath, &d.CreatedAt}, extra...)
	return d, row.Scan(dest...)
}

// Create inserts the document. The returned copy carries the values Postgres stored.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	const q = `
		INSERT INTO documents (id, title, content, storage_path, upload_date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, title, storage_path, upload_date
	`
	stored := model.Document{Content: doc.Content}
	err := r.db.QueryRowContext(ctx, q, doc.ID, doc.Title, doc.Content, doc.StoragePath, doc.CreatedAt).
		Scan(&stored.ID, &stored.Title, &stored.StoragePath, &stored.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// FindByID loads a document with its full text. A missing row is reported as sql.ErrNoRows.
func (r *DocumentPostgres) FindByID(ctx context.Context, id string) (*model.Document, error) {
	const q = `SELECT id, title, content, storage_path, upload_date FROM documents WHERE id = $1`
	var d model.Document
	err := r.db.QueryRowContext(ctx, q, id).Scan(&d.ID, &d.Title, &d.Content, &d.StoragePath, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Delete drops the row. A missing row is not an error.
func (r *DocumentPostgres) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	return err
}

// List returns one page of metadata, newest upload first. The total rides along on every row
// through a window count; a page past the end falls back to a plain COUNT.
func (r *DocumentPostgres) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.DocumentInfo], error) {
	const q = `
		SELECT id, title, char_length(content), storage_path, upload_date, COUNT(*) OVER ()
		FROM documents
		ORDER BY upload_date DESC, id DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, q, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	page := &repository.PageResult[model.DocumentInfo]{Items: make([]model.DocumentInfo, 0, max(pq.Limit, 0))}
	for rows.Next() {
		d, err := scanDocumentInfo(rows, &page.Total)
		if err != nil {
			return nil, err
		}
		page.Items = append(page.Items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(page.Items) == 0 && pq.Offset > 0 {
		if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&page.Total); err != nil {
			return nil, err
		}
	}
	return page, nil
}
