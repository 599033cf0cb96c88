// Package presence serializes rich presence updates against a single desktop
// presence connection.
//
// A presence actor is made of two halves:
//
//   - Handle: the caller-facing side. Any goroutine may call Handle.Update to
//     enqueue a Command. Enqueueing never blocks.
//   - worker: a single goroutine that owns the Client and the current Activity.
//     It applies commands one at a time, in the order they were enqueued.
//
// The worker tracks whether the Client is connected. Connect and Disconnect
// are idempotent: repeating either is a no-op, so the Client sees at most one
// Connect per transition into the connected state and at most one Close per
// transition out of it. UpdateActivity always updates the worker's copy of the
// activity, but only pushes it to the Client while connected; the latest copy
// is pushed on the next Connect.
//
// # Faults
//
// Client failures never stop the worker. Each failure is logged, counted,
// recorded as Status.LastFault and handed to the handler installed with
// WithFaultHandler. A failed Connect leaves the worker disconnected. A failed
// Close still leaves it disconnected since the local side abandons the
// connection either way.
//
// # Lifetime
//
// Go has no destructors, so every Handle (and every Clone) must be closed:
//
//	h := presence.New(ctx, cfg, client, presence.WithLogger(logger))
//	defer h.Close()
//
//	if err := h.Connect(); err != nil {
//	    return err
//	}
//	h.SetActivity("In menus", "Idle", "logo")
//
// When the last reference is closed and a Connect was ever requested, a final
// Disconnect is enqueued before the queue is closed. The worker drains the
// queue and exits. Cancelling the context passed to New aborts the worker
// instead; it then closes the Client itself if it is still connected.
package presence
