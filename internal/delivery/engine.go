package delivery

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"dailypages/internal/config"
	"dailypages/internal/mail"
	"dailypages/internal/model"
	"dailypages/internal/paginator"
	"dailypages/internal/repository"
)

// Config tunes a delivery Engine.
type Config struct {
	BufferLength  int
	Workers       int
	PassTimeout   time.Duration
	SendAttempts  int
	RetryInterval time.Duration
	Subject       string
}

// ConfigFrom assembles the engine settings from the application configuration.
func ConfigFrom(d config.DeliveryConfig, m config.MailConfig) Config {
	return Config{
		BufferLength:  d.BufferLength,
		Workers:       d.Workers,
		PassTimeout:   d.PassTimeout,
		SendAttempts:  d.SendAttempts,
		RetryInterval: d.RetryInterval,
		Subject:       m.Subject,
	}
}

// Engine runs delivery passes. It is safe for concurrent use; overlapping passes touching the
// same subscription are serialized per subscription.
type Engine struct {
	subs       repository.SubscriptionRepository
	docs       repository.DocumentRepository
	deliveries repository.DeliveryRepository
	sender     mail.Sender
	cfg        Config
	metrics    *Metrics
	log        *zap.Logger
	tracer     trace.Tracer
	locks      *keyedMutex
	now        func() time.Time
}

// NewEngine wires an Engine to its collaborators.
func NewEngine(
	subs repository.SubscriptionRepository,
	docs repository.DocumentRepository,
	deliveries repository.DeliveryRepository,
	sender mail.Sender,
	cfg Config,
	metrics *Metrics,
	log *zap.Logger,
) *Engine {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.SendAttempts <= 0 {
		cfg.SendAttempts = 1
	}
	if cfg.BufferLength < 0 {
		cfg.BufferLength = 0
	}
	return &Engine{
		subs:       subs,
		docs:       docs,
		deliveries: deliveries,
		sender:     sender,
		cfg:        cfg,
		metrics:    metrics,
		log:        log.With(zap.String("component", "delivery")),
		tracer:     otel.Tracer("dailypages/internal/delivery"),
		locks:      newKeyedMutex(),
		now:        time.Now,
	}
}

// Run executes one pass over the active subscriptions in scope and waits for it to finish.
// Per-subscription failures end up in the report. Only a scope that cannot be read at all
// aborts the pass; the returned error then wraps repository.ErrScopeUnavailable.
func (e *Engine) Run(ctx context.Context, scope model.Scope, trigger Trigger) (*Report, error) {
	started := e.now()
	report := newReport(scope, trigger, started)
	log := e.log.With(zap.String("scope", scope.String()), zap.String("trigger", string(trigger)))

	ctx, span := e.tracer.Start(ctx, "delivery.pass", trace.WithAttributes(
		attribute.String("delivery.scope", scope.String()),
		attribute.String("delivery.trigger", string(trigger)),
	))
	defer span.End()

	if e.cfg.PassTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.PassTimeout)
		defer cancel()
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(e.cfg.Workers)
	collect := func(res Result) {
		e.metrics.outcomes.WithLabelValues(string(res.Outcome)).Inc()
		mu.Lock()
		report.add(res)
		mu.Unlock()
	}

	log.Info("delivery_pass_started")
	for sub, err := range e.subs.ListActive(ctx, scope) {
		if err != nil {
			if errors.Is(err, repository.ErrScopeUnavailable) {
				_ = g.Wait()
				span.RecordError(err)
				span.SetStatus(codes.Error, "scope unavailable")
				log.Error("delivery_pass_aborted", zap.Error(err))
				return nil, err
			}
			if ctx.Err() != nil {
				break
			}
			log.Error("subscription_read_failed", zap.String("outcome", string(OutcomeStorageFailed)), zap.Error(err))
			collect(Result{Outcome: OutcomeStorageFailed, Error: err.Error()})
			continue
		}
		if err := ctx.Err(); err != nil {
			collect(newResult(sub).fail(OutcomeSkipped, err))
			continue
		}
		g.Go(func() error {
			collect(e.process(ctx, sub, log))
			return nil
		})
	}
	_ = g.Wait()

	report.FinishedAt = e.now()
	elapsed := report.FinishedAt.Sub(started)
	e.metrics.passDuration.WithLabelValues(string(trigger)).Observe(elapsed.Seconds())

	fields := []zap.Field{zap.Int("subscriptions", len(report.Results)), zap.Duration("duration", elapsed)}
	for _, o := range Outcomes {
		fields = append(fields, zap.Int(string(o), report.Count(o)))
	}
	log.Info("delivery_pass_finished", fields...)
	span.SetAttributes(attribute.Int("delivery.subscriptions", len(report.Results)))

	return report, nil
}

func newResult(sub model.Subscription) Result {
	return Result{
		SubscriptionID: sub.ID,
		ReaderEmail:    sub.ReaderEmail,
		DocumentID:     sub.DocumentID,
		Cursor:         sub.Cursor,
	}
}

func (r Result) fail(o Outcome, err error) Result {
	r.Outcome = o
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

// process handles one subscription under its lock.
func (e *Engine) process(ctx context.Context, sub model.Subscription, log *zap.Logger) Result {
	res := newResult(sub)
	if err := ctx.Err(); err != nil {
		return res.fail(OutcomeSkipped, err)
	}

	unlock := e.locks.Lock(sub.ID)
	defer unlock()

	ctx, span := e.tracer.Start(ctx, "delivery.subscription", trace.WithAttributes(
		attribute.String("subscription.id", sub.ID),
		attribute.String("document.id", sub.DocumentID),
	))
	defer span.End()

	log = log.With(
		zap.String("subscription_id", sub.ID),
		zap.String("reader", sub.ReaderEmail),
		zap.String("document_id", sub.DocumentID),
	)
	res = e.deliver(ctx, sub, res, log)

	span.SetAttributes(attribute.String("delivery.outcome", string(res.Outcome)))
	if res.Error != "" && res.Outcome != OutcomeSkipped {
		span.SetStatus(codes.Error, res.Error)
	}
	return res
}

func (e *Engine) deliver(ctx context.Context, sub model.Subscription, res Result, log *zap.Logger) Result {
	if err := ctx.Err(); err != nil {
		return res.fail(OutcomeSkipped, err)
	}

	// The row seen by the scope query may be stale if another pass held the lock.
	current, err := e.subs.FindByID(ctx, sub.ID)
	if err != nil {
		if ctx.Err() != nil {
			return res.fail(OutcomeSkipped, ctx.Err())
		}
		log.Error("subscription_reload_failed", zap.String("outcome", string(OutcomeStorageFailed)), zap.Error(err))
		return res.fail(OutcomeStorageFailed, err)
	}
	res.Cursor = current.Cursor
	if !current.IsActive {
		log.Debug("subscription_no_longer_active")
		return res.fail(OutcomeSkipped, nil)
	}

	doc, err := e.docs.FindByID(ctx, current.DocumentID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		log.Warn("document_missing", zap.String("outcome", string(OutcomeDocumentMissing)))
		return res.fail(OutcomeDocumentMissing, err)
	case err != nil:
		log.Error("document_fetch_failed", zap.String("outcome", string(OutcomeStorageFailed)), zap.Error(err))
		return res.fail(OutcomeStorageFailed, err)
	}

	page := paginator.Paginate(doc.Content, current.Cursor, current.PageLength, e.cfg.BufferLength)
	res.PageStart, res.PageEnd = page.Start, page.End

	if page.Exhausted || page.Empty() {
		if err := e.subs.SetActive(ctx, current.ID, false); err != nil {
			log.Error("subscription_deactivate_failed", zap.String("outcome", string(OutcomeStorageFailed)), zap.Error(err))
			return res.fail(OutcomeStorageFailed, err)
		}
		log.Info("subscription_finished", zap.Int("cursor", current.Cursor))
		return res.fail(OutcomeFinished, nil)
	}

	msg := mail.Message{
		To:      current.ReaderEmail,
		Subject: e.cfg.Subject,
		Text:    page.Text,
		HTML:    page.Text,
	}
	attempts, err := e.send(ctx, msg)
	res.Attempts = attempts

	// Whatever happened to the send, its bookkeeping must survive the pass deadline.
	wctx := context.WithoutCancel(ctx)
	if err != nil {
		log.Error("page_send_failed",
			zap.String("outcome", string(OutcomeSendFailed)),
			zap.Int("attempts", attempts),
			zap.Error(err),
		)
		e.record(wctx, current.ID, model.DeliveryStatusFailed, attempts, page, err, log)
		return res.fail(OutcomeSendFailed, err)
	}

	if err := e.subs.AdvanceCursor(wctx, current.ID, current.Cursor, current.PageLength, e.now()); err != nil {
		log.Error("cursor_advance_failed", zap.String("outcome", string(OutcomeStorageFailed)), zap.Error(err))
		e.record(wctx, current.ID, model.DeliveryStatusSent, attempts, page, err, log)
		return res.fail(OutcomeStorageFailed, err)
	}
	res.Cursor = current.Cursor + current.PageLength
	e.record(wctx, current.ID, model.DeliveryStatusSent, attempts, page, nil, log)

	log.Info("page_delivered",
		zap.Int("page_start", page.Start),
		zap.Int("page_end", page.End),
		zap.Int("cursor", res.Cursor),
		zap.Int("attempts", attempts),
	)
	res.Outcome = OutcomeDelivered
	return res
}

// send submits msg, retrying transient failures with exponential backoff.
func (e *Engine) send(ctx context.Context, msg mail.Message) (int, error) {
	attempts := 0
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.cfg.RetryInterval

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempts++
		e.metrics.sendAttempts.Inc()
		err := e.sender.Send(ctx, msg)
		if errors.Is(err, mail.ErrRejected) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(uint(e.cfg.SendAttempts)))
	return attempts, err
}

func (e *Engine) record(ctx context.Context, subscriptionID string, status model.DeliveryStatus, attempts int, page paginator.Page, cause error, log *zap.Logger) {
	d := &model.Delivery{
		ID:             uuid.NewString(),
		SubscriptionID: subscriptionID,
		Status:         status,
		Attempts:       attempts,
		PageStart:      page.Start,
		PageEnd:        page.End,
		CreatedAt:      e.now(),
	}
	if cause != nil {
		d.Error = cause.Error()
	}
	if err := e.deliveries.Record(ctx, d); err != nil {
		log.Warn("delivery_log_write_failed", zap.Error(err))
	}
}
