package presence

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrQueueClosed is returned by Handle.Update once the worker no longer accepts
// commands.
var ErrQueueClosed = errors.New("presence queue closed")

// ErrNilCommand is returned by Handle.Update when given a nil command.
var ErrNilCommand = errors.New("nil presence command")

// ErrDisconnected is wrapped by Client errors when the connection is gone and
// a new Connect is needed before anything can be published.
var ErrDisconnected = errors.New("presence connection lost")

// errPanic marks a fault produced by a recovered panic inside a Client call.
var errPanic = errors.New("client panicked")

// ConnectionState is the worker's view of the presence connection.
type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Connected
)

func (s ConnectionState) String() string {
	switch s {
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s ConnectionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Client operations reported in faults and metrics.
const (
	OpConnect       = "connect"
	OpSetActivity   = "set_activity"
	OpClearActivity = "clear_activity"
	OpClose         = "close"
)

// Fault describes a failed Client call.
type Fault struct {
	// Op is the Client operation that failed, one of the Op constants.
	Op string
	// Command is the command being applied when the call failed. It is empty
	// for calls made outside of a command, such as the close on abort.
	Command string
	Err     error
	At      time.Time
}

func (f *Fault) Error() string {
	if f.Command == "" {
		return fmt.Sprintf("presence %s: %v", f.Op, f.Err)
	}
	return fmt.Sprintf("presence %s (%s): %v", f.Op, f.Command, f.Err)
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// MarshalJSON renders the fault with its error as a string.
func (f *Fault) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Op      string    `json:"op"`
		Command string    `json:"command,omitempty"`
		Error   string    `json:"error"`
		At      time.Time `json:"at"`
	}{
		Op:      f.Op,
		Command: f.Command,
		Error:   f.Err.Error(),
		At:      f.At,
	})
}

// Status is a read-only view of a presence actor.
type Status struct {
	// State is the connection state as of the last applied command.
	State ConnectionState `json:"state"`
	// Desired is the state asked for by the most recent Connect or Disconnect
	// enqueued through any handle.
	Desired ConnectionState `json:"desired"`
	// Activity is the worker's current activity, whether published or not.
	Activity Activity `json:"activity"`
	// Requested is the activity of the most recently enqueued update. It runs
	// ahead of Activity while updates are pending.
	Requested Activity `json:"requested"`
	// Processed counts applied commands.
	Processed uint64 `json:"processed"`
	// Pending counts commands waiting in the queue.
	Pending int `json:"pending"`
	// LastFault is the most recent Client failure, if any.
	LastFault *Fault `json:"last_fault,omitempty"`
	// Closed is set once the worker has exited.
	Closed bool `json:"closed"`
}
