// Package scheduler fires the daily delivery pass over every active subscription.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"dailypages/internal/delivery"
	"dailypages/internal/model"
)

// ErrAlreadyRunning is returned by Start on a scheduler that has not been stopped.
var ErrAlreadyRunning = errors.New("scheduler already running")

// Runner executes one delivery pass.
type Runner interface {
	Run(ctx context.Context, scope model.Scope, trigger delivery.Trigger) (*delivery.Report, error)
}

// Scheduler owns a cron timer and a single pass worker. The timer only enqueues; a tick that
// arrives while a pass is still queued is dropped, so at most one scheduled pass waits at a time.
type Scheduler struct {
	runner Runner
	spec   string
	loc    *time.Location
	log    *zap.Logger

	mu      sync.Mutex
	running bool
	cron    *cron.Cron
	entry   cron.EntryID
	pending chan struct{}
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a scheduler firing on spec (standard five-field cron syntax or a descriptor
// such as "@daily") in loc.
func New(runner Runner, spec string, loc *time.Location, log *zap.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		runner: runner,
		spec:   spec,
		loc:    loc,
		log:    log.With(zap.String("component", "scheduler")),
	}
}

// Start registers the timer and launches the worker. It returns immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrAlreadyRunning
	}

	c := cron.New(cron.WithLocation(s.loc))
	pending := make(chan struct{}, 1)
	entry, err := c.AddFunc(s.spec, func() { enqueue(pending) })
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", s.spec, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cron, s.entry, s.pending, s.cancel = c, entry, pending, cancel
	s.running = true

	s.wg.Add(1)
	go s.work(ctx, pending)
	c.Start()

	s.log.Info("scheduler_started", zap.String("spec", s.spec), zap.Time("next_run", c.Entry(entry).Next))
	return nil
}

// Stop halts the timer, cancels a pass in flight and waits for the worker to exit.
// It is safe to call on a stopped scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	c, cancel := s.cron, s.cancel
	s.mu.Unlock()

	<-c.Stop().Done()
	cancel()
	s.wg.Wait()
	s.log.Info("scheduler_stopped")
}

// NextRun reports when the timer fires next. It is zero while the scheduler is stopped.
func (s *Scheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return time.Time{}
	}
	return s.cron.Entry(s.entry).Next
}

func enqueue(pending chan<- struct{}) bool {
	select {
	case pending <- struct{}{}:
		return true
	default:
		return false
	}
}

func (s *Scheduler) work(ctx context.Context, pending <-chan struct{}) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-pending:
			s.runPass(ctx)
		}
	}
}

func (s *Scheduler) runPass(ctx context.Context) {
	report, err := s.runner.Run(ctx, model.Scope{Kind: model.ScopeAll}, delivery.TriggerScheduled)
	if err != nil {
		s.log.Error("scheduled_pass_failed", zap.Error(err))
		return
	}
	s.log.Info("scheduled_pass_done",
		zap.Int("subscriptions", len(report.Results)),
		zap.Int("delivered", report.Count(delivery.OutcomeDelivered)),
	)
}
