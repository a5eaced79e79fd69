package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"dailypages/internal/delivery"
	"dailypages/internal/extract"
	"dailypages/internal/model"
	"dailypages/internal/paginator"
	"dailypages/internal/repository"
	"dailypages/internal/storage"
)

const downloadURLExpiry = 15 * time.Minute

// UploadInput is one uploaded file and the address that should receive it.
type UploadInput struct {
	Email       string
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// UploadResult reports what an upload created.
type UploadResult struct {
	Document     model.DocumentInfo  `json:"document"`
	Subscription *model.Subscription `json:"subscription"`
	Created      bool                `json:"created"`
	// FirstDelivery is set when a new subscription received its first page right away.
	FirstDelivery *delivery.Report `json:"first_delivery,omitempty"`
}

// DocumentListResult is the service-level DTO for paginated documents.
type DocumentListResult struct {
	Items []model.DocumentInfo `json:"data"`
	Total int                  `json:"total"`
}

// DocumentDetails is a document's metadata with a temporary link to the original file.
type DocumentDetails struct {
	model.DocumentInfo
	DownloadURL string `json:"download_url,omitempty"`
}

// DocumentService defines the use cases for handling documents.
type DocumentService interface {
	// Upload archives the raw file, extracts its text, stores the document, subscribes the
	// reader and, for a new subscription, delivers the first page immediately.
	Upload(ctx context.Context, in UploadInput) (*UploadResult, error)

	// List returns document metadata using limit/offset and a total count.
	List(ctx context.Context, limit, offset int) (*DocumentListResult, error)

	// Get returns a single document's metadata by its ID.
	Get(ctx context.Context, id string) (*DocumentDetails, error)

	// Source streams the original uploaded file of a document.
	Source(ctx context.Context, id string) (io.ReadCloser, storage.ObjectInfo, error)
}

// documentService is a concrete implementation of DocumentService.
type documentService struct {
	store      storage.Storage
	extractor  extract.Extractor
	docs       repository.DocumentRepository
	subs       repository.SubscriptionRepository
	runner     DeliveryRunner
	pageLength int
	maxBytes   int64
	log        *zap.Logger
}

// NewDocumentService constructs a new DocumentService.
func NewDocumentService(
	store storage.Storage,
	extractor extract.Extractor,
	docs repository.DocumentRepository,
	subs repository.SubscriptionRepository,
	runner DeliveryRunner,
	pageLength int,
	maxBytes int64,
	log *zap.Logger,
) DocumentService {
	return &documentService{
		store:      store,
		extractor:  extractor,
		docs:       docs,
		subs:       subs,
		runner:     runner,
		pageLength: pageLength,
		maxBytes:   maxBytes,
		log:        log,
	}
}

func (s *documentService) Upload(ctx context.Context, in UploadInput) (*UploadResult, error) {
	if in.Body == nil {
		return nil, ErrReaderNil
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}

	data, err := s.readAll(in.Body)
	if err != nil {
		return nil, err
	}

	// Extraction runs before anything is stored so a bad file leaves no trace.
	extracted, err := s.extractor.Extract(ctx, in.Filename, data)
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}

	id := uuid.New().String()
	key := storage.ObjectKey(id, in.Filename)
	objInfo, err := s.store.Put(ctx, key, bytes.NewReader(data), storage.PutObjectOptions{
		Size:        int64(len(data)),
		ContentType: in.ContentType,
		Metadata: map[string]string{
			"original-filename": in.Filename,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	stored, err := s.docs.Create(ctx, &model.Document{
		ID:          id,
		Title:       extracted.Title,
		Content:     extracted.Text,
		StoragePath: objInfo.Key,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		// Rollback: delete the object from storage
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			return nil, fmt.Errorf("db save failed: %v; rollback delete failed: %v", err, delErr)
		}
		return nil, fmt.Errorf("db save failed: %w", err)
	}

	sub, created, err := s.subs.Upsert(ctx, email, stored.ID, s.pageLength, time.Now().UTC())
	if err != nil {
		if rbErr := s.discard(ctx, stored.ID, key); rbErr != nil {
			return nil, fmt.Errorf("subscribe: %v; rollback failed: %v", err, rbErr)
		}
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	res := &UploadResult{
		Document:     infoOf(stored),
		Subscription: sub,
		Created:      created,
	}
	if created {
		res.FirstDelivery = firstDelivery(ctx, s.runner, s.log, email, stored.ID)
	}
	return res, nil
}

// discard removes a document that was stored but never got its subscription, row first so
// the document cannot be listed without its archive.
func (s *documentService) discard(ctx context.Context, id, key string) error {
	if err := s.docs.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if err := s.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

func (s *documentService) readAll(r io.Reader) ([]byte, error) {
	if s.maxBytes <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, ErrFileTooLarge
	}
	return data, nil
}

// firstDelivery runs the immediate pass for a new subscription. Its failure does not undo the
// subscription: the scheduled pass picks it up.
func firstDelivery(ctx context.Context, runner DeliveryRunner, log *zap.Logger, email, documentID string) *delivery.Report {
	report, err := runner.Run(ctx, model.NewScope(email, documentID), delivery.TriggerUpload)
	if err != nil {
		log.Warn("first_delivery_failed",
			zap.String("reader", email),
			zap.String("document_id", documentID),
			zap.Error(err),
		)
		return nil
	}
	return report
}

func infoOf(d *model.Document) model.DocumentInfo {
	return model.DocumentInfo{
		ID:          d.ID,
		Title:       d.Title,
		Length:      paginator.Length(d.Content),
		StoragePath: d.StoragePath,
		CreatedAt:   d.CreatedAt,
	}
}

// List returns paginated documents without exposing repository types.
func (s *documentService) List(ctx context.Context, limit, offset int) (*DocumentListResult, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	res, err := s.docs.List(ctx, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return &DocumentListResult{Items: res.Items, Total: res.Total}, nil
}

func (s *documentService) find(ctx context.Context, id string) (*model.Document, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	doc, err := s.docs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

// Get returns a document by ID with a short-lived download link when the original is archived.
func (s *documentService) Get(ctx context.Context, id string) (*DocumentDetails, error) {
	doc, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	out := &DocumentDetails{DocumentInfo: infoOf(doc)}
	if doc.StoragePath != "" {
		url, err := s.store.PresignGet(ctx, doc.StoragePath, downloadURLExpiry)
		if err != nil {
			s.log.Warn("presign_failed", zap.String("document_id", id), zap.Error(err))
		} else {
			out.DownloadURL = url
		}
	}
	return out, nil
}

func (s *documentService) Source(ctx context.Context, id string) (io.ReadCloser, storage.ObjectInfo, error) {
	doc, err := s.find(ctx, id)
	if err != nil {
		return nil, storage.ObjectInfo{}, err
	}
	if doc.StoragePath == "" {
		return nil, storage.ObjectInfo{}, ErrNotFound
	}
	rc, info, err := s.store.Get(ctx, doc.StoragePath)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return nil, storage.ObjectInfo{}, ErrNotFound
	}
	if err != nil {
		return nil, storage.ObjectInfo{}, fmt.Errorf("read storage: %w", err)
	}
	return rc, info, nil
}
