package delivery

import (
	"context"
	"database/sql"
	"errors"
	"iter"
	"sync"
	"time"

	"dailypages/internal/mail"
	"dailypages/internal/model"
	"dailypages/internal/repository"
)

type fakeLedger struct {
	mu       sync.Mutex
	subs     map[string]*model.Subscription
	order    []string
	listErr  error
	rowErrAt int
	advance  func(id string) error
	advances int
}

func newFakeLedger(subs ...model.Subscription) *fakeLedger {
	l := &fakeLedger{subs: make(map[string]*model.Subscription), rowErrAt: -1}
	for _, s := range subs {
		l.add(s)
	}
	return l
}

func (l *fakeLedger) add(s model.Subscription) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.IsActive = true
	l.subs[s.ID] = &s
	l.order = append(l.order, s.ID)
}

func (l *fakeLedger) get(id string) model.Subscription {
	l.mu.Lock()
	defer l.mu.Unlock()
	return *l.subs[id]
}

func inScope(s *model.Subscription, scope model.Scope) bool {
	switch scope.Kind {
	case model.ScopeReader:
		return s.ReaderEmail == scope.ReaderEmail
	case model.ScopeSubscription:
		return s.ReaderEmail == scope.ReaderEmail && s.DocumentID == scope.DocumentID
	default:
		return true
	}
}

func (l *fakeLedger) ListActive(ctx context.Context, scope model.Scope) iter.Seq2[model.Subscription, error] {
	return func(yield func(model.Subscription, error) bool) {
		if l.listErr != nil {
			yield(model.Subscription{}, l.listErr)
			return
		}
		l.mu.Lock()
		var snapshot []model.Subscription
		for _, id := range l.order {
			if s := l.subs[id]; s.IsActive && inScope(s, scope) {
				snapshot = append(snapshot, *s)
			}
		}
		l.mu.Unlock()

		for i, s := range snapshot {
			if i == l.rowErrAt {
				if !yield(model.Subscription{}, errors.New("scan subscription: bad cursor")) {
					return
				}
			}
			if !yield(s, nil) {
				return
			}
		}
	}
}

func (l *fakeLedger) FindByID(ctx context.Context, id string) (*model.Subscription, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.subs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

func (l *fakeLedger) ListByReader(ctx context.Context, email string) ([]model.Subscription, error) {
	return nil, errors.New("not used")
}

func (l *fakeLedger) Upsert(ctx context.Context, email, documentID string, pageLength int, now time.Time) (*model.Subscription, bool, error) {
	return nil, false, errors.New("not used")
}

func (l *fakeLedger) AdvanceCursor(ctx context.Context, id string, from, by int, now time.Time) error {
	if l.advance != nil {
		if err := l.advance(id); err != nil {
			return err
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.subs[id]
	if !ok || s.Cursor != from {
		return repository.ErrCursorConflict
	}
	s.Cursor += by
	s.AccessDate = now
	l.advances++
	return nil
}

func (l *fakeLedger) SetActive(ctx context.Context, id string, active bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.subs[id]
	if !ok {
		return sql.ErrNoRows
	}
	s.IsActive = active
	return nil
}

type fakeDocs struct {
	docs    map[string]model.Document
	failing map[string]error
}

func newFakeDocs(docs ...model.Document) *fakeDocs {
	f := &fakeDocs{docs: make(map[string]model.Document), failing: make(map[string]error)}
	for _, d := range docs {
		f.docs[d.ID] = d
	}
	return f
}

func (f *fakeDocs) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	return nil, errors.New("not used")
}

func (f *fakeDocs) FindByID(ctx context.Context, id string) (*model.Document, error) {
	if err, ok := f.failing[id]; ok {
		return nil, err
	}
	d, ok := f.docs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &d, nil
}

func (f *fakeDocs) Delete(ctx context.Context, id string) error {
	delete(f.docs, id)
	return nil
}

func (f *fakeDocs) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.DocumentInfo], error) {
	return nil, errors.New("not used")
}

type fakeDeliveryLog struct {
	mu   sync.Mutex
	rows []model.Delivery
}

func (f *fakeDeliveryLog) Record(ctx context.Context, d *model.Delivery) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, *d)
	return nil
}

func (f *fakeDeliveryLog) ListBySubscription(ctx context.Context, subscriptionID string, limit int) ([]model.Delivery, error) {
	return nil, errors.New("not used")
}

func (f *fakeDeliveryLog) all() []model.Delivery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Delivery(nil), f.rows...)
}

// fakeSender records accepted messages. fn, when set, decides the result of each call.
type fakeSender struct {
	mu    sync.Mutex
	sent  []mail.Message
	calls int
	fn    func(call int, msg mail.Message) error
}

func (s *fakeSender) Send(ctx context.Context, msg mail.Message) error {
	s.mu.Lock()
	s.calls++
	call := s.calls
	fn := s.fn
	s.mu.Unlock()

	if fn != nil {
		if err := fn(call, msg); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.sent = append(s.sent, msg)
	s.mu.Unlock()
	return nil
}

func (s *fakeSender) messages() []mail.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]mail.Message(nil), s.sent...)
}
