package presence

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/jonboulle/clockwork"
)

// Handle enqueues commands for a presence worker.
//
// A Handle is safe for concurrent use. Every Handle returned by New or Clone
// holds one reference on the worker and must be closed exactly once; the
// worker shuts down when the last reference is closed.
type Handle struct {
	shared *shared
	closed atomic.Bool
}

// shared is the state common to a Handle and all of its clones.
type shared struct {
	queue  *queue
	status *atomic.Pointer[Status]
	done   chan struct{}
	logger *slog.Logger

	mu               sync.Mutex
	refs             int
	connectRequested bool
	desired          ConnectionState
	// requested is the activity of the last enqueued UpdateActivity.
	requested Activity
}

type options struct {
	logger  *slog.Logger
	metrics *Metrics
	clock   clockwork.Clock
	onFault func(*Fault)
}

// Option configures a presence actor.
type Option func(*options)

// WithLogger sets the logger used by the worker and its handles.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics records worker activity in m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithClock sets the clock used to timestamp faults.
func WithClock(clock clockwork.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithFaultHandler installs fn to receive every Client failure.
// fn runs on the worker goroutine and must not block.
func WithFaultHandler(fn func(*Fault)) Option {
	return func(o *options) {
		o.onFault = fn
	}
}

// New starts a presence worker driving client and returns the first Handle.
//
// The worker runs until every Handle has been closed and the queued commands
// are applied, or until ctx is cancelled.
func New(ctx context.Context, cfg Config, client Client, opts ...Option) *Handle {
	o := options{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		clock:  clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	s := &shared{
		queue:     newQueue(),
		status:    &atomic.Pointer[Status]{},
		done:      make(chan struct{}),
		logger:    o.logger,
		refs:      1,
		requested: cfg.Activity(),
	}

	w := &worker{
		client:   client,
		activity: cfg.Activity(),
		state:    Disconnected,
		queue:    s.queue,
		logger:   o.logger,
		metrics:  o.metrics,
		clock:    o.clock,
		onFault:  o.onFault,
		status:   s.status,
		done:     s.done,
	}
	w.publish(false)
	w.metrics.stateChanged(Disconnected)

	go w.run(ctx)

	return &Handle{shared: s}
}

// Update enqueues cmd. It never blocks and returns ErrQueueClosed once this
// handle has been closed or the worker has exited.
func (h *Handle) Update(cmd Command) error {
	if cmd == nil {
		return ErrNilCommand
	}
	if h.closed.Load() {
		return ErrQueueClosed
	}
	return h.shared.send(cmd)
}

// Connect enqueues a Connect command.
func (h *Handle) Connect() error {
	return h.Update(Connect{})
}

// Disconnect enqueues a Disconnect command.
func (h *Handle) Disconnect() error {
	return h.Update(Disconnect{})
}

// SetActivity enqueues an UpdateActivity command.
func (h *Handle) SetActivity(title, subtitle, icon string) error {
	return h.Update(UpdateActivity{
		Title:    title,
		Subtitle: subtitle,
		Icon:     icon,
	})
}

// MergeActivity enqueues an UpdateActivity in which empty fields keep the value
// of the most recently enqueued activity, and returns the command sent.
// Concurrent merges are serialized so none of their fields are lost.
func (h *Handle) MergeActivity(title, subtitle, icon string) (UpdateActivity, error) {
	if h.closed.Load() {
		return UpdateActivity{}, ErrQueueClosed
	}
	return h.shared.merge(title, subtitle, icon)
}

// ClearActivity enqueues a ClearActivity command.
func (h *Handle) ClearActivity() error {
	return h.Update(ClearActivity{})
}

// Clone returns a new Handle sharing the same worker. The clone holds its own
// reference and must be closed separately. Cloning a closed Handle returns a
// closed Handle.
func (h *Handle) Clone() *Handle {
	clone := &Handle{shared: h.shared}
	if h.closed.Load() {
		clone.closed.Store(true)
		return clone
	}

	h.shared.mu.Lock()
	h.shared.refs++
	h.shared.mu.Unlock()
	return clone
}

// Close releases this handle's reference. Closing the last reference enqueues
// a final Disconnect if a Connect was ever requested, then stops the queue so
// the worker exits once it has drained it. Close is idempotent and always
// returns nil; teardown problems are logged.
func (h *Handle) Close() error {
	if !h.closed.CompareAndSwap(false, true) {
		return nil
	}
	h.shared.release()
	return nil
}

// Shutdown closes the handle and waits for the worker to exit.
func (h *Handle) Shutdown(ctx context.Context) error {
	_ = h.Close()

	select {
	case <-h.shared.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for presence worker: %w", ctx.Err())
	}
}

// Done returns a channel that is closed when the worker exits.
func (h *Handle) Done() <-chan struct{} {
	return h.shared.done
}

// Status returns a snapshot of the worker state.
func (h *Handle) Status() Status {
	st := *h.shared.status.Load()
	st.Pending = h.shared.queue.len()

	h.shared.mu.Lock()
	st.Desired = h.shared.desired
	st.Requested = h.shared.requested
	h.shared.mu.Unlock()

	return st
}

// send pushes cmd while holding mu so Desired follows queue order.
func (s *shared) send(cmd Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sendLocked(cmd)
}

func (s *shared) sendLocked(cmd Command) error {
	if err := s.queue.push(cmd); err != nil {
		return err
	}

	switch c := cmd.(type) {
	case Connect:
		s.connectRequested = true
		s.desired = Connected
	case Disconnect:
		s.desired = Disconnected
	case UpdateActivity:
		s.requested.Title = c.Title
		s.requested.Subtitle = c.Subtitle
		s.requested.Icon = c.Icon
	}
	return nil
}

func (s *shared) merge(title, subtitle, icon string) (UpdateActivity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cmd := UpdateActivity{
		Title:    valueOr(title, s.requested.Title),
		Subtitle: valueOr(subtitle, s.requested.Subtitle),
		Icon:     valueOr(icon, s.requested.Icon),
	}
	if err := s.sendLocked(cmd); err != nil {
		return UpdateActivity{}, err
	}
	return cmd, nil
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func (s *shared) release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.refs--
	if s.refs > 0 {
		return
	}

	if s.connectRequested {
		if err := s.queue.push(Disconnect{}); err != nil {
			s.logger.Warn("could not enqueue final disconnect", "error", err)
		} else {
			s.desired = Disconnected
		}
	}
	s.queue.close()
}
