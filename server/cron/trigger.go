// Package cron re-issues presence Connect commands on a cron schedule.
//
// A ReconnectTrigger checks the presence status at every scheduled time and
// enqueues a Connect when a connection is wanted but not established, for
// example after Discord was not running when the daemon started.
//
// Example usage:
//
//	trigger, err := cron.NewReconnectTrigger("*/5 * * * *", handle, cron.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	trigger.Start(ctx) // Returns immediately, runs in background
package cron

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"

	"github.com/nomis52/presenced/presence"
)

// ErrInvalidCronSpec is returned when the cron specification cannot be parsed.
var ErrInvalidCronSpec = errors.New("invalid cron spec")

// Target is the presence actor the trigger watches and reconnects.
type Target interface {
	Status() presence.Status
	Connect() error
}

// ReconnectTrigger enqueues Connect on a schedule while the desired state is
// connected but the worker is not.
type ReconnectTrigger struct {
	spec     string
	schedule cron.Schedule
	target   Target
	logger   *slog.Logger
	clock    clockwork.Clock

	mu       sync.Mutex
	lastRun  time.Time
	attempts int
}

// Option configures a ReconnectTrigger.
type Option func(*ReconnectTrigger)

// WithLogger sets the trigger's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *ReconnectTrigger) {
		t.logger = logger
	}
}

// WithClock sets the clock the schedule is evaluated against.
func WithClock(clock clockwork.Clock) Option {
	return func(t *ReconnectTrigger) {
		t.clock = clock
	}
}

// NewReconnectTrigger creates a trigger for spec. The spec follows standard
// cron format (5 fields) and also accepts descriptors such as "@every 30s".
// Returns ErrInvalidCronSpec if the specification cannot be parsed.
func NewReconnectTrigger(spec string, target Target, opts ...Option) (*ReconnectTrigger, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, errors.Join(ErrInvalidCronSpec, err)
	}

	t := &ReconnectTrigger{
		spec:     spec,
		schedule: schedule,
		target:   target,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		clock:    clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Spec returns the schedule the trigger was created with.
func (t *ReconnectTrigger) Spec() string {
	return t.spec
}

// Start launches a goroutine that checks the target according to the
// schedule. Returns immediately. The goroutine exits when ctx is cancelled.
func (t *ReconnectTrigger) Start(ctx context.Context) {
	go t.loop(ctx)
}

// NextRun returns the next scheduled check time from now.
func (t *ReconnectTrigger) NextRun() time.Time {
	return t.schedule.Next(t.clock.Now())
}

// Attempts returns how many Connect commands the trigger has enqueued.
func (t *ReconnectTrigger) Attempts() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.attempts
}

// LastRun returns the time of the most recent check, or the zero time.
func (t *ReconnectTrigger) LastRun() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastRun
}

func (t *ReconnectTrigger) loop(ctx context.Context) {
	for {
		nextRun := t.NextRun()
		wait := nextRun.Sub(t.clock.Now())

		t.logger.Debug("waiting for next reconnect check",
			"next_run", nextRun,
			"wait_duration", wait,
		)

		timer := t.clock.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			t.logger.Debug("reconnect trigger shutting down")
			return
		case <-timer.Chan():
			if _, err := t.Check(); errors.Is(err, presence.ErrQueueClosed) {
				t.logger.Debug("presence worker gone, stopping reconnect trigger")
				return
			}
		}
	}
}

// Check evaluates the target once and enqueues Connect if it should be
// connected but is not. It reports whether a Connect was enqueued.
func (t *ReconnectTrigger) Check() (bool, error) {
	st := t.target.Status()

	t.mu.Lock()
	t.lastRun = t.clock.Now()
	t.mu.Unlock()

	if st.Closed {
		return false, presence.ErrQueueClosed
	}
	if st.Desired != presence.Connected || st.State == presence.Connected {
		return false, nil
	}
	// A Connect still waiting in the queue will be retried by the worker anyway.
	if st.Pending > 0 {
		t.logger.Debug("commands pending, skipping reconnect", "pending", st.Pending)
		return false, nil
	}

	if err := t.target.Connect(); err != nil {
		t.logger.Warn("could not enqueue reconnect", "error", err)
		return false, err
	}

	t.mu.Lock()
	t.attempts++
	attempts := t.attempts
	t.mu.Unlock()

	t.logger.Info("presence disconnected but wanted, reconnecting", "attempts", attempts)
	return true, nil
}
