package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"dailypages/internal/delivery"
	runnerMocks "dailypages/internal/delivery/mocks"
	"dailypages/internal/extract"
	extractMocks "dailypages/internal/extract/mocks"
	"dailypages/internal/model"
	"dailypages/internal/repository"
	repoMocks "dailypages/internal/repository/mocks"
	"dailypages/internal/storage"
	storeMocks "dailypages/internal/storage/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type documentMocks struct {
	store     *storeMocks.MockStorage
	extractor *extractMocks.MockExtractor
	docs      *repoMocks.MockDocumentRepository
	subs      *repoMocks.MockSubscriptionRepository
	runner    *runnerMocks.MockRunner
}

func newDocumentMocks() documentMocks {
	return documentMocks{
		store:     new(storeMocks.MockStorage),
		extractor: new(extractMocks.MockExtractor),
		docs:      new(repoMocks.MockDocumentRepository),
		subs:      new(repoMocks.MockSubscriptionRepository),
		runner:    new(runnerMocks.MockRunner),
	}
}

func (m documentMocks) service(log *zap.Logger) DocumentService {
	return NewDocumentService(m.store, m.extractor, m.docs, m.subs, m.runner, 2000, 64, log)
}

func (m documentMocks) assertExpectations(t *testing.T) {
	m.store.AssertExpectations(t)
	m.extractor.AssertExpectations(t)
	m.docs.AssertExpectations(t)
	m.subs.AssertExpectations(t)
	m.runner.AssertExpectations(t)
}

func TestDocumentService_Upload(t *testing.T) {
	ctx := context.Background()
	stored := &model.Document{
		ID:          "doc-1",
		Title:       "Notes",
		Content:     "hello world",
		StoragePath: "uploads/doc-1.txt",
		CreatedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	sub := &model.Subscription{ID: "sub-1", ReaderEmail: "a@example.com", DocumentID: "doc-1", Cursor: 1, PageLength: 2000, IsActive: true}
	firstPass := &delivery.Report{Counts: map[delivery.Outcome]int{delivery.OutcomeDelivered: 1}}

	expectStored := func(m documentMocks) {
		m.extractor.On("Extract", ctx, "notes.txt", []byte("hello world")).
			Return(&extract.Document{Title: "Notes", Text: "hello world"}, nil)
		m.store.On("Put", ctx, mock.MatchedBy(func(key string) bool {
			return strings.HasPrefix(key, "uploads/") && strings.HasSuffix(key, ".txt")
		}), mock.Anything, mock.MatchedBy(func(opt storage.PutObjectOptions) bool {
			return opt.Size == 11 && opt.Metadata["original-filename"] == "notes.txt"
		})).Return(storage.ObjectInfo{Key: "uploads/doc-1.txt", Size: 11}, nil)
		m.docs.On("Create", ctx, mock.MatchedBy(func(d *model.Document) bool {
			return d.Title == "Notes" && d.Content == "hello world" && d.StoragePath == "uploads/doc-1.txt"
		})).Return(stored, nil)
	}

	tests := []struct {
		name       string
		input      UploadInput
		setupMocks func(m documentMocks)
		wantErr    error
		wantErrMsg string
		check      func(t *testing.T, res *UploadResult)
	}{
		{
			name:  "new subscription gets its first page",
			input: UploadInput{Email: "a@example.com", Filename: "notes.txt", ContentType: "text/plain", Body: strings.NewReader("hello world")},
			setupMocks: func(m documentMocks) {
				expectStored(m)
				m.subs.On("Upsert", ctx, "a@example.com", "doc-1", 2000, mock.Anything).Return(sub, true, nil)
				m.runner.On("Run", ctx, model.NewScope("a@example.com", "doc-1"), delivery.TriggerUpload).Return(firstPass, nil)
			},
			check: func(t *testing.T, res *UploadResult) {
				assert.True(t, res.Created)
				assert.Equal(t, "doc-1", res.Document.ID)
				assert.Equal(t, 11, res.Document.Length)
				assert.Equal(t, sub, res.Subscription)
				assert.Same(t, firstPass, res.FirstDelivery)
			},
		},
		{
			name:  "existing subscription is left alone",
			input: UploadInput{Email: "a@example.com", Filename: "notes.txt", Body: strings.NewReader("hello world")},
			setupMocks: func(m documentMocks) {
				expectStored(m)
				m.subs.On("Upsert", ctx, "a@example.com", "doc-1", 2000, mock.Anything).Return(sub, false, nil)
			},
			check: func(t *testing.T, res *UploadResult) {
				assert.False(t, res.Created)
				assert.Nil(t, res.FirstDelivery)
			},
		},
		{
			name:       "nil reader",
			input:      UploadInput{Email: "a@example.com", Filename: "notes.txt"},
			setupMocks: func(m documentMocks) {},
			wantErr:    ErrReaderNil,
		},
		{
			name:       "invalid email",
			input:      UploadInput{Email: "Ann <a@example.com>", Filename: "notes.txt", Body: strings.NewReader("x")},
			setupMocks: func(m documentMocks) {},
			wantErr:    ErrInvalidEmail,
		},
		{
			name:       "file over the limit",
			input:      UploadInput{Email: "a@example.com", Filename: "big.txt", Body: strings.NewReader(strings.Repeat("x", 65))},
			setupMocks: func(m documentMocks) {},
			wantErr:    ErrFileTooLarge,
		},
		{
			name:  "unsupported file stores nothing",
			input: UploadInput{Email: "a@example.com", Filename: "image.png", Body: strings.NewReader("png")},
			setupMocks: func(m documentMocks) {
				m.extractor.On("Extract", ctx, "image.png", []byte("png")).Return(nil, extract.ErrUnsupported)
			},
			wantErr: extract.ErrUnsupported,
		},
		{
			name:  "storage error",
			input: UploadInput{Email: "a@example.com", Filename: "notes.txt", Body: strings.NewReader("hello")},
			setupMocks: func(m documentMocks) {
				m.extractor.On("Extract", ctx, "notes.txt", []byte("hello")).Return(&extract.Document{Title: "notes", Text: "hello"}, nil)
				m.store.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).
					Return(storage.ObjectInfo{}, errors.New("storage fail"))
			},
			wantErrMsg: "upload to storage: storage fail",
		},
		{
			name:  "repository error with successful rollback",
			input: UploadInput{Email: "a@example.com", Filename: "notes.txt", Body: strings.NewReader("hello")},
			setupMocks: func(m documentMocks) {
				m.extractor.On("Extract", ctx, "notes.txt", []byte("hello")).Return(&extract.Document{Title: "notes", Text: "hello"}, nil)
				m.store.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).
					Return(func(ctx context.Context, key string, r io.Reader, opt storage.PutObjectOptions) storage.ObjectInfo {
						return storage.ObjectInfo{Key: key}
					}, nil)
				m.docs.On("Create", ctx, mock.Anything).Return(nil, errors.New("db fail"))
				m.store.On("Delete", ctx, mock.Anything).Return(nil)
			},
			wantErrMsg: "db save failed: db fail",
		},
		{
			name:  "repository error with failed rollback",
			input: UploadInput{Email: "a@example.com", Filename: "notes.txt", Body: strings.NewReader("hello")},
			setupMocks: func(m documentMocks) {
				m.extractor.On("Extract", ctx, "notes.txt", []byte("hello")).Return(&extract.Document{Title: "notes", Text: "hello"}, nil)
				m.store.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).
					Return(func(ctx context.Context, key string, r io.Reader, opt storage.PutObjectOptions) storage.ObjectInfo {
						return storage.ObjectInfo{Key: key}
					}, nil)
				m.docs.On("Create", ctx, mock.Anything).Return(nil, errors.New("db fail"))
				m.store.On("Delete", ctx, mock.Anything).Return(errors.New("delete fail"))
			},
			wantErrMsg: "rollback delete failed: delete fail",
		},
		{
			name:  "subscribe error",
			input: UploadInput{Email: "a@example.com", Filename: "notes.txt", Body: strings.NewReader("hello world")},
			setupMocks: func(m documentMocks) {
				expectStored(m)
				m.subs.On("Upsert", ctx, "a@example.com", "doc-1", 2000, mock.Anything).Return(nil, false, errors.New("tx fail"))
				m.docs.On("Delete", ctx, "doc-1").Return(nil).Once()
				m.store.On("Delete", ctx, mock.MatchedBy(func(key string) bool {
					return strings.HasPrefix(key, "uploads/") && strings.HasSuffix(key, ".txt")
				})).Return(nil).Once()
			},
			wantErrMsg: "subscribe: tx fail",
		},
		{
			name:  "subscribe error with failed rollback",
			input: UploadInput{Email: "a@example.com", Filename: "notes.txt", Body: strings.NewReader("hello world")},
			setupMocks: func(m documentMocks) {
				expectStored(m)
				m.subs.On("Upsert", ctx, "a@example.com", "doc-1", 2000, mock.Anything).Return(nil, false, errors.New("tx fail"))
				m.docs.On("Delete", ctx, "doc-1").Return(errors.New("db gone")).Once()
			},
			wantErrMsg: "rollback failed: delete document: db gone",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newDocumentMocks()
			tt.setupMocks(m)

			res, err := m.service(zap.NewNop()).Upload(ctx, tt.input)

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, res)
			case tt.wantErrMsg != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrMsg)
				assert.Nil(t, res)
			default:
				require.NoError(t, err)
				require.NotNil(t, res)
				tt.check(t, res)
			}
			m.assertExpectations(t)
		})
	}
}

func TestDocumentService_Upload_FirstDeliveryFailureIsLogged(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zap.WarnLevel)
	m := newDocumentMocks()

	m.extractor.On("Extract", ctx, "notes.txt", []byte("hello")).Return(&extract.Document{Title: "notes", Text: "hello"}, nil)
	m.store.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).Return(storage.ObjectInfo{Key: "uploads/doc-1.txt"}, nil)
	m.docs.On("Create", ctx, mock.Anything).Return(&model.Document{ID: "doc-1", Content: "hello"}, nil)
	m.subs.On("Upsert", ctx, "a@example.com", "doc-1", 2000, mock.Anything).
		Return(&model.Subscription{ID: "sub-1", Cursor: 1}, true, nil)
	m.runner.On("Run", ctx, mock.Anything, delivery.TriggerUpload).Return(nil, repository.ErrScopeUnavailable)

	res, err := m.service(zap.New(core)).Upload(ctx, UploadInput{
		Email:    "a@example.com",
		Filename: "notes.txt",
		Body:     strings.NewReader("hello"),
	})

	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Nil(t, res.FirstDelivery)
	require.Equal(t, 1, logs.FilterMessage("first_delivery_failed").Len())
	m.assertExpectations(t)
}

func TestDocumentService_List(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults applied", func(t *testing.T) {
		m := newDocumentMocks()
		m.docs.On("List", ctx, repository.PageQuery{Limit: 10, Offset: 0}).
			Return(&repository.PageResult[model.DocumentInfo]{Items: []model.DocumentInfo{{ID: "doc-1"}}, Total: 1}, nil)

		res, err := m.service(zap.NewNop()).List(ctx, 0, -5)

		require.NoError(t, err)
		assert.Equal(t, 1, res.Total)
		assert.Len(t, res.Items, 1)
		m.assertExpectations(t)
	})

	t.Run("repository error", func(t *testing.T) {
		m := newDocumentMocks()
		m.docs.On("List", ctx, repository.PageQuery{Limit: 5, Offset: 10}).Return(nil, errors.New("db fail"))

		res, err := m.service(zap.NewNop()).List(ctx, 5, 10)

		assert.Error(t, err)
		assert.Nil(t, res)
	})
}

func TestDocumentService_Get(t *testing.T) {
	ctx := context.Background()
	doc := &model.Document{ID: "doc-1", Title: "Notes", Content: "héllo", StoragePath: "uploads/doc-1.txt"}

	t.Run("with download link", func(t *testing.T) {
		m := newDocumentMocks()
		m.docs.On("FindByID", ctx, "doc-1").Return(doc, nil)
		m.store.On("PresignGet", ctx, "uploads/doc-1.txt", downloadURLExpiry).Return("https://files/doc-1", nil)

		res, err := m.service(zap.NewNop()).Get(ctx, "doc-1")

		require.NoError(t, err)
		assert.Equal(t, 5, res.Length)
		assert.Equal(t, "https://files/doc-1", res.DownloadURL)
		m.assertExpectations(t)
	})

	t.Run("presign failure still returns metadata", func(t *testing.T) {
		m := newDocumentMocks()
		m.docs.On("FindByID", ctx, "doc-1").Return(doc, nil)
		m.store.On("PresignGet", ctx, "uploads/doc-1.txt", downloadURLExpiry).Return("", errors.New("no creds"))

		res, err := m.service(zap.NewNop()).Get(ctx, "doc-1")

		require.NoError(t, err)
		assert.Empty(t, res.DownloadURL)
	})

	t.Run("not found", func(t *testing.T) {
		m := newDocumentMocks()
		m.docs.On("FindByID", ctx, "missing").Return(nil, sql.ErrNoRows)

		res, err := m.service(zap.NewNop()).Get(ctx, "missing")

		assert.ErrorIs(t, err, ErrNotFound)
		assert.Nil(t, res)
	})

	t.Run("id required", func(t *testing.T) {
		m := newDocumentMocks()
		_, err := m.service(zap.NewNop()).Get(ctx, "")
		assert.ErrorIs(t, err, ErrIDRequired)
	})
}

func TestDocumentService_Source(t *testing.T) {
	ctx := context.Background()

	t.Run("streams the archived file", func(t *testing.T) {
		m := newDocumentMocks()
		m.docs.On("FindByID", ctx, "doc-1").Return(&model.Document{ID: "doc-1", StoragePath: "uploads/doc-1.txt"}, nil)
		m.store.On("Get", ctx, "uploads/doc-1.txt").
			Return(io.NopCloser(strings.NewReader("hello")), storage.ObjectInfo{Key: "uploads/doc-1.txt", ContentType: "text/plain"}, nil)

		rc, info, err := m.service(zap.NewNop()).Source(ctx, "doc-1")

		require.NoError(t, err)
		defer rc.Close()
		body, _ := io.ReadAll(rc)
		assert.Equal(t, "hello", string(body))
		assert.Equal(t, "text/plain", info.ContentType)
	})

	t.Run("document without archive", func(t *testing.T) {
		m := newDocumentMocks()
		m.docs.On("FindByID", ctx, "doc-1").Return(&model.Document{ID: "doc-1"}, nil)

		_, _, err := m.service(zap.NewNop()).Source(ctx, "doc-1")

		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("storage error", func(t *testing.T) {
		m := newDocumentMocks()
		m.docs.On("FindByID", ctx, "doc-1").Return(&model.Document{ID: "doc-1", StoragePath: "k"}, nil)
		m.store.On("Get", ctx, "k").Return(nil, storage.ObjectInfo{}, errors.New("gone"))

		_, _, err := m.service(zap.NewNop()).Source(ctx, "doc-1")

		assert.EqualError(t, err, "read storage: gone")
	})

	t.Run("archived object missing", func(t *testing.T) {
		m := newDocumentMocks()
		m.docs.On("FindByID", ctx, "doc-1").Return(&model.Document{ID: "doc-1", StoragePath: "k"}, nil)
		m.store.On("Get", ctx, "k").Return(nil, storage.ObjectInfo{}, fmt.Errorf("%w: NoSuchKey", storage.ErrObjectNotFound))

		_, _, err := m.service(zap.NewNop()).Source(ctx, "doc-1")

		assert.ErrorIs(t, err, ErrNotFound)
	})
}
