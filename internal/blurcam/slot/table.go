package slot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/autopeer-io/blurcam/internal/pkg/metrics"
)

// Table owns every slot. All occupancy reads and writes happen under mu, which is
// held only for the check-and-set itself and never while an operation runs.
type Table struct {
	mu     sync.Mutex
	slots  [numSlots]*Handle
	closed bool
	token  uint64

	// base is the parent of every operation context. CancelAll cancels it.
	base   context.Context
	cancel context.CancelCauseFunc
}

// NewTable returns a table with every slot empty.
func NewTable() *Table {
	base, cancel := context.WithCancelCause(context.Background())
	t := &Table{base: base, cancel: cancel}
	for _, id := range All() {
		metrics.SlotOccupied.WithLabelValues(id.String()).Set(0)
	}
	return t
}

// Acquire occupies target if target and every slot in requires are empty.
// The check and the occupation are one atomic step.
func (t *Table) Acquire(target ID, requires ...ID) (*Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, ErrClosed
	}
	for _, id := range requires {
		if t.slots[id] != nil {
			return nil, &OccupiedError{Slot: id}
		}
	}
	if t.slots[target] != nil {
		return nil, &OccupiedError{Slot: target}
	}
	return t.occupyLocked(target), nil
}

// Replace cancels the current occupant of target, if any, and installs a new one.
// The previous occupant's own Release becomes a no-op for the slot.
func (t *Table) Replace(target ID) (*Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, ErrClosed
	}
	if old := t.slots[target]; old != nil {
		t.vacateLocked(old)
		old.cancel(ErrSuperseded)
	}
	return t.occupyLocked(target), nil
}

// Handoff atomically moves an operation from from's slot to the empty slot to.
// It fails if from no longer occupies its slot or was cancelled, so a cancelled
// stage never starts the next one. On success from is released.
func (t *Table) Handoff(from *Handle, to ID) (*Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, ErrClosed
	}
	if t.slots[from.id] != from || from.ctx.Err() != nil {
		return nil, ErrCancelled
	}
	if t.slots[to] != nil {
		return nil, &OccupiedError{Slot: to}
	}
	t.vacateLocked(from)
	from.ack()
	from.cancel(nil)
	return t.occupyLocked(to), nil
}

// Cancel signals the occupant of id with cause. The occupant stays in the slot
// until it releases itself. It reports whether there was an occupant.
func (t *Table) Cancel(id ID, cause error) bool {
	t.mu.Lock()
	h := t.slots[id]
	t.mu.Unlock()

	if h == nil {
		return false
	}
	h.cancel(cause)
	return true
}

// Snapshot copies the current occupancy.
func (t *Table) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	var s Snapshot
	for id, h := range t.slots {
		s[id] = h != nil
	}
	return s
}

// CancelAll closes the table, cancels every occupant and waits for each to release
// until ctx is done. Occupants still present then are cleared and their abandon
// hooks run. It returns an error naming the number of abandoned occupants, if any.
// Every slot is empty when CancelAll returns.
func (t *Table) CancelAll(ctx context.Context) error {
	t.mu.Lock()
	t.closed = true
	pending := make([]*Handle, 0, numSlots)
	for _, h := range t.slots {
		if h != nil {
			pending = append(pending, h)
		}
	}
	t.mu.Unlock()

	t.cancel(ErrCancelled)

	var abandoned []*Handle
	for _, h := range pending {
		select {
		case <-h.done:
		case <-ctx.Done():
			abandoned = append(abandoned, h)
		}
	}
	if len(abandoned) == 0 {
		return nil
	}

	var hooks []func()
	t.mu.Lock()
	for _, h := range abandoned {
		if t.slots[h.id] == h {
			t.vacateLocked(h)
			if h.onAbandon != nil {
				hooks = append(hooks, h.onAbandon)
			}
		}
	}
	t.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
	return fmt.Errorf("%d operation(s) did not stop in time: %w", len(abandoned), context.Cause(ctx))
}

// Closed reports whether CancelAll has started.
func (t *Table) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func (t *Table) occupyLocked(id ID) *Handle {
	t.token++
	ctx, cancel := context.WithCancelCause(t.base)
	h := &Handle{
		table:   t,
		id:      id,
		token:   t.token,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		started: time.Now(),
	}
	t.slots[id] = h
	metrics.SlotOccupied.WithLabelValues(id.String()).Set(1)
	return h
}

func (t *Table) vacateLocked(h *Handle) {
	t.slots[h.id] = nil
	metrics.SlotOccupied.WithLabelValues(h.id.String()).Set(0)
	metrics.OperationDuration.WithLabelValues(h.id.String()).Observe(time.Since(h.started).Seconds())
}
