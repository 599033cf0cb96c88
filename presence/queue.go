package presence

import (
	"context"
	"sync"
)

// queue is an unbounded FIFO of commands with many producers and a single
// consumer.
type queue struct {
	mu     sync.Mutex
	items  []Command
	closed bool
	wake   chan struct{} // buffered(1), signalled on push and close
}

func newQueue() *queue {
	return &queue{
		wake: make(chan struct{}, 1),
	}
}

// push appends cmd. It never blocks and fails only once the queue is closed.
func (q *queue) push(cmd Command) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.items = append(q.items, cmd)
	q.mu.Unlock()

	q.signal()
	return nil
}

// pop returns the oldest command. It blocks until one is available and returns
// false once the queue is closed and drained, or when ctx is done.
func (q *queue) pop(ctx context.Context) (Command, bool) {
	for {
		if ctx.Err() != nil {
			return nil, false
		}

		q.mu.Lock()
		if len(q.items) > 0 {
			cmd := q.items[0]
			q.items[0] = nil
			q.items = q.items[1:]
			q.mu.Unlock()
			return cmd, true
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return nil, false
		}

		select {
		case <-q.wake:
		case <-ctx.Done():
			return nil, false
		}
	}
}

// close stops further pushes. Commands already queued can still be popped.
func (q *queue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	q.signal()
}

// len reports the number of queued commands.
func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}
