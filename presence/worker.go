package presence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/jonboulle/clockwork"
)

// worker owns the Client and the current activity. All of its fields are only
// touched from the run goroutine, except status which is published atomically.
type worker struct {
	client   Client
	activity Activity
	state    ConnectionState

	queue   *queue
	logger  *slog.Logger
	metrics *Metrics
	clock   clockwork.Clock
	onFault func(*Fault)

	processed uint64
	lastFault *Fault
	status    *atomic.Pointer[Status]
	done      chan struct{}
}

// run applies queued commands until the queue is closed and drained or ctx is
// done.
func (w *worker) run(ctx context.Context) {
	defer close(w.done)
	defer w.queue.close()

	w.logger.Debug("presence worker started", "app_id", w.activity.AppID)

	for {
		cmd, ok := w.queue.pop(ctx)
		if !ok {
			break
		}
		w.apply(cmd)
		w.processed++
		w.publish(false)
	}

	if ctx.Err() != nil && w.state == Connected {
		w.logger.Info("presence worker aborted while connected, closing connection")
		_ = w.call(OpClose, nil, w.client.Close)
		w.setState(Disconnected)
	}

	w.publish(true)
	w.logger.Debug("presence worker stopped", "processed", w.processed)
}

// apply executes a single command against the connection state machine.
func (w *worker) apply(cmd Command) {
	logger := w.logger.With("command", cmd.String())
	w.metrics.commandApplied(cmd)

	switch c := cmd.(type) {
	case Connect:
		if w.state == Connected {
			logger.Debug("already connected")
			return
		}
		if err := w.call(OpConnect, cmd, w.client.Connect); err != nil {
			return
		}
		w.setState(Connected)
		logger.Info("presence connected", "app_id", w.activity.AppID)
		w.push(cmd)

	case Disconnect:
		if w.state == Disconnected {
			logger.Debug("already disconnected")
			return
		}
		// The local side gives up on the connection even if close fails.
		_ = w.call(OpClose, cmd, w.client.Close)
		w.setState(Disconnected)
		logger.Info("presence disconnected")

	case UpdateActivity:
		w.activity.Title = c.Title
		w.activity.Subtitle = c.Subtitle
		w.activity.Icon = c.Icon
		if w.state != Connected {
			logger.Debug("activity stored until connected", "title", c.Title)
			return
		}
		w.push(cmd)

	case ClearActivity:
		if w.state != Connected {
			logger.Debug("not connected, nothing to clear")
			return
		}
		if err := w.call(OpClearActivity, cmd, w.client.ClearActivity); err == nil {
			logger.Debug("activity cleared")
		}

	default:
		logger.Warn("ignoring unknown presence command", "type", fmt.Sprintf("%T", cmd))
	}
}

// push publishes the current activity.
func (w *worker) push(cmd Command) {
	activity := w.activity
	err := w.call(OpSetActivity, cmd, func() error {
		return w.client.SetActivity(activity)
	})
	if err == nil {
		w.logger.Debug("activity published",
			"title", activity.Title,
			"subtitle", activity.Subtitle,
			"icon", activity.Icon,
		)
	}
}

// call runs a Client operation, converting errors and panics into faults.
func (w *worker) call(op string, cmd Command, fn func() error) error {
	err := safeCall(fn)
	if err == nil {
		return nil
	}

	fault := &Fault{
		Op:  op,
		Err: err,
		At:  w.clock.Now(),
	}
	if cmd != nil {
		fault.Command = cmd.String()
	}
	w.lastFault = fault
	w.metrics.faultRecorded(op)
	w.logger.Error("presence client call failed", "op", op, "command", fault.Command, "error", err)

	if errors.Is(err, ErrDisconnected) && w.state == Connected {
		w.setState(Disconnected)
		w.logger.Warn("presence connection lost", "op", op)
	}

	if w.onFault != nil {
		w.onFault(fault)
	}
	return fault
}

func safeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errPanic, r)
		}
	}()
	return fn()
}

func (w *worker) setState(state ConnectionState) {
	w.state = state
	w.metrics.stateChanged(state)
}

// publish stores a fresh Status snapshot for readers on other goroutines.
func (w *worker) publish(closed bool) {
	w.status.Store(&Status{
		State:     w.state,
		Activity:  w.activity,
		Processed: w.processed,
		LastFault: w.lastFault,
		Closed:    closed,
	})
}
