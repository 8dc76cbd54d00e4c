package fsm

import (
	"context"

	"github.com/looplab/fsm"
)

// WrapEvent adapts an error-returning action to fsm.Callback. A returned error is
// recorded on the event and surfaces from FSM.Event.
func WrapEvent(fn func(ctx context.Context, event *fsm.Event) error) fsm.Callback {
	return func(ctx context.Context, event *fsm.Event) {
		if err := fn(ctx, event); err != nil {
			event.Err = err
		}
	}
}

// Guard adapts a check to a before_ callback. A returned error cancels the
// transition, and FSM.Event returns fsm.CanceledError wrapping it.
func Guard(fn func(ctx context.Context, event *fsm.Event) error) fsm.Callback {
	return func(ctx context.Context, event *fsm.Event) {
		if err := fn(ctx, event); err != nil {
			event.Cancel(err)
		}
	}
}

// BeforeEvent is the callback key run before event fires.
func BeforeEvent(event string) string { return "before_" + event }

// EnterState is the callback key run when state is entered.
func EnterState(state string) string { return "enter_" + state }
