// Package keeper runs the periodic off-chain bots that settle pending
// deposits and keep yield-source NAVs current.
package keeper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"stablebond-keeper/internal/domain"
	"stablebond-keeper/internal/observability"
	"stablebond-keeper/internal/storage"
)

// TickFunc performs one keeper tick.
type TickFunc func(ctx context.Context) error

// TaskOptions configures a Task.
type TaskOptions struct {
	Name     domain.KeeperName
	Interval time.Duration // Default: 1 minute
	Clock    Clock         // Default: SystemClock
	Locker   storage.Locker
	Logger   *slog.Logger
}

// Task runs a tick immediately and then once per interval until stopped.
// Tick errors are logged and never end the loop.
type Task struct {
	name     domain.KeeperName
	interval time.Duration
	clock    Clock
	locker   storage.Locker
	logger   *slog.Logger
	tick     TickFunc

	mu      sync.Mutex
	started bool
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
}

// NewTask creates a task around tick.
func NewTask(opts TaskOptions, tick TickFunc) *Task {
	interval := opts.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Task{
		name:     opts.Name,
		interval: interval,
		clock:    clock,
		locker:   opts.Locker,
		logger:   logger.With(slog.String("keeper", string(opts.Name))),
		tick:     tick,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Name returns the keeper name.
func (t *Task) Name() domain.KeeperName { return t.name }

// Start runs the task in a new goroutine.
func (t *Task) Start(ctx context.Context) {
	go func() {
		if err := t.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			t.logger.Error("keeper stopped", slog.Any("error", err))
		}
	}()
}

// Stop prevents further ticks. A tick in flight runs to completion.
func (t *Task) Stop() {
	t.once.Do(func() { close(t.stop) })
}

// Done is closed once the loop has exited.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Run blocks until ctx is cancelled or Stop is called. It returns ctx.Err()
// on cancellation and nil after Stop.
func (t *Task) Run(ctx context.Context) error {
	t.mu.Lock()
	if t.started {
		t.mu.Unlock()
		return fmt.Errorf("keeper %s already running", t.name)
	}
	t.started = true
	t.mu.Unlock()
	defer close(t.done)

	ticker := t.clock.NewTicker(t.interval)
	defer ticker.Stop()

	t.logger.Info("keeper started", slog.Duration("interval", t.interval))
	t.runOnce(ctx)

	for {
		// Stop wins over a pending tick.
		select {
		case <-t.stop:
			t.logger.Info("keeper stopped")
			return nil
		default:
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.stop:
			t.logger.Info("keeper stopped")
			return nil
		case <-ticker.C():
			t.runOnce(ctx)
		}
	}
}

// RunOnce performs a single tick outside the loop.
func (t *Task) RunOnce(ctx context.Context) error {
	return t.guarded(ctx)
}

func (t *Task) runOnce(ctx context.Context) {
	if err := t.guarded(ctx); err != nil {
		t.logger.Error("keeper tick failed", slog.Any("error", err))
	}
}

func (t *Task) guarded(ctx context.Context) error {
	if t.locker != nil {
		release, err := t.locker.Acquire(ctx, LeaseKey(t.name))
		if errors.Is(err, storage.ErrLeaseHeld) {
			observability.RecordLeaseSkip(string(t.name))
			t.logger.Debug("lease held elsewhere, skipping tick")
			return nil
		}
		if err != nil {
			return fmt.Errorf("acquire lease: %w", err)
		}
		defer release()
	}

	start := t.clock.Now()
	err := t.tick(ctx)
	finished := t.clock.Now()

	status := "success"
	if err != nil {
		status = "error"
	}
	observability.RecordKeeperTick(string(t.name), status, finished.Sub(start).Seconds(), finished.Unix())
	return err
}

// LeaseKey is the lock a keeper holds while ticking.
func LeaseKey(name domain.KeeperName) string {
	return "keeper:" + string(name)
}
