package slot

import (
	"context"
	"sync"
	"time"
)

// Handle is one occupation of a slot. It is released exactly once, either by the
// operation itself, by Handoff, or by CancelAll giving up on it.
type Handle struct {
	table   *Table
	id      ID
	token   uint64
	ctx     context.Context
	cancel  context.CancelCauseFunc
	started time.Time

	// done is closed once the operation has acknowledged completion.
	done    chan struct{}
	ackOnce sync.Once

	// onAbandon is guarded by table.mu.
	onAbandon func()
}

// ID returns the slot this handle occupies.
func (h *Handle) ID() ID { return h.id }

// Token is unique per occupation and increases monotonically.
func (h *Handle) Token() uint64 { return h.token }

// Context is cancelled when the occupant must stop. context.Cause tells why.
func (h *Handle) Context() context.Context { return h.ctx }

// Done is closed once the occupant has released its slot.
func (h *Handle) Done() <-chan struct{} { return h.done }

// OnAbandon registers fn to run if CancelAll clears this occupant before it releases.
func (h *Handle) OnAbandon(fn func()) {
	h.table.mu.Lock()
	h.onAbandon = fn
	h.table.mu.Unlock()
}

// Release empties the slot if this handle still occupies it. It reports whether
// this call emptied the slot; later calls, and calls after a Replace, Handoff or
// CancelAll took the slot away, return false.
func (h *Handle) Release() bool {
	t := h.table
	t.mu.Lock()
	owned := t.slots[h.id] == h
	if owned {
		t.vacateLocked(h)
	}
	t.mu.Unlock()

	h.ack()
	h.cancel(nil)
	return owned
}

func (h *Handle) ack() {
	h.ackOnce.Do(func() { close(h.done) })
}
