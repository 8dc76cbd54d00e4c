package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/looplab/fsm"

	"github.com/autopeer-io/blurcam/internal/blurcam/command"
	"github.com/autopeer-io/blurcam/internal/blurcam/core"
	"github.com/autopeer-io/blurcam/internal/blurcam/slot"
	fsmutil "github.com/autopeer-io/blurcam/internal/pkg/util/fsm"
	"github.com/autopeer-io/blurcam/pkg/log"
)

const (
	StateIdle       = "idle"
	StateCapturing  = "capturing"
	StateProcessing = "processing"
	StateDone       = "done"
	StateFailed     = "failed"
	StateCancelled  = "cancelled"

	// EventCapture releases the shutter.
	EventCapture = "capture"
	// EventCaptured moves the picture from the TakePicture slot to the ImageProcess slot.
	EventCaptured = "captured"
	// EventProcessed ends the run with a blurred picture.
	EventProcessed = "processed"
	EventFail      = "fail"
	EventCancel    = "cancel"
)

// pipeline is one TakePicture -> ImageProcess run. It occupies exactly one of the
// two slots at a time and ends in exactly one of done, failed or cancelled.
type pipeline struct {
	*fsm.FSM

	d   *Dispatcher
	cmd *command.Command
	log log.Logger

	mu sync.Mutex
	// stage is the slot handle currently held.
	stage *slot.Handle
}

func (d *Dispatcher) newPipeline(cmd *command.Command, tp *slot.Handle) *pipeline {
	p := &pipeline{
		d:     d,
		cmd:   cmd,
		stage: tp,
		log:   d.log.WithValues("pipeline", cmd.ID),
	}

	events := fsm.Events{
		{Name: EventCapture, Src: []string{StateIdle}, Dst: StateCapturing},
		{Name: EventCaptured, Src: []string{StateCapturing}, Dst: StateProcessing},
		{Name: EventProcessed, Src: []string{StateProcessing}, Dst: StateDone},
		{Name: EventFail, Src: []string{StateCapturing, StateProcessing}, Dst: StateFailed},
		{Name: EventCancel, Src: []string{StateIdle, StateCapturing, StateProcessing}, Dst: StateCancelled},
	}

	callbacks := fsm.Callbacks{
		// Guards
		fsmutil.BeforeEvent(EventCaptured): fsmutil.Guard(p.guardHandoff),

		// Side-Effects
		fsmutil.EnterState(StateCapturing):  fsmutil.WrapEvent(p.actionEnterCapturing),
		fsmutil.EnterState(StateProcessing): fsmutil.WrapEvent(p.actionEnterProcessing),
		fsmutil.EnterState(StateDone):       fsmutil.WrapEvent(p.actionEnterDone),
		fsmutil.EnterState(StateFailed):     fsmutil.WrapEvent(p.actionEnterFailed),
		fsmutil.EnterState(StateCancelled):  fsmutil.WrapEvent(p.actionEnterCancelled),
	}

	p.FSM = fsm.NewFSM(StateIdle, events, callbacks)
	return p
}

func (d *Dispatcher) startPipeline(cmd *command.Command, tp *slot.Handle) {
	p := d.newPipeline(cmd, tp)
	tp.OnAbandon(p.abandon)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		p.run()
	}()
}

// run drives the pipeline. Transitions use a context detached from the slot so
// that a cancelled operation can still record its terminal state.
func (p *pipeline) run() {
	tp := p.current()
	ctx := context.WithoutCancel(tp.Context())

	if err := p.Event(ctx, EventCapture); err != nil {
		tp.Release()
		return
	}

	artifact, err := p.d.camera.Capture(tp.Context(), p.cmd.Parameters)
	if err == nil && artifact.Path == "" {
		err = errors.New("capture produced no file")
	}
	if err != nil {
		p.stop(ctx, tp, err)
		return
	}

	if err := p.Event(ctx, EventCaptured, artifact); err != nil {
		// The guard refused the handoff, so the capture was cancelled.
		p.stop(ctx, tp, err)
		return
	}

	ip := p.current()
	result, err := p.d.processor.Process(ip.Context(), artifact)
	if err == nil && result.Blurred == "" {
		err = errors.New("processing produced no file")
	}
	if err != nil {
		p.stop(ctx, ip, err)
		return
	}

	ip.Release()
	_ = p.Event(ctx, EventProcessed, result)
}

// stop releases h and records the failure, or the cancellation if h was cancelled
// or the table refused it because shutdown has begun.
func (p *pipeline) stop(ctx context.Context, h *slot.Handle, err error) {
	cancelled := h.Context().Err() != nil ||
		errors.Is(err, slot.ErrClosed) ||
		errors.Is(err, slot.ErrCancelled)
	h.Release()

	if cancelled {
		_ = p.Event(ctx, EventCancel, err)
		return
	}
	_ = p.Event(ctx, EventFail, err)
}

// abandon is called when shutdown gave up waiting for the pipeline.
func (p *pipeline) abandon() {
	_ = p.Event(context.Background(), EventCancel, slot.ErrCancelled)
}

func (p *pipeline) current() *slot.Handle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stage
}

// guardHandoff moves the operation into the ImageProcess slot. It fails, and so
// cancels the transition, if the capture was cancelled meanwhile.
func (p *pipeline) guardHandoff(ctx context.Context, e *fsm.Event) error {
	tp := p.current()
	ip, err := p.d.slots.Handoff(tp, slot.ImageProcess)
	if err != nil {
		return fmt.Errorf("hand off to processing: %w", err)
	}
	ip.OnAbandon(p.abandon)

	p.mu.Lock()
	p.stage = ip
	p.mu.Unlock()
	return nil
}

func (p *pipeline) actionEnterCapturing(ctx context.Context, e *fsm.Event) error {
	p.log.Info("Capturing")
	p.d.notify(ctx, core.Event{Type: core.EventCaptureStarted, CommandID: p.cmd.ID})
	return nil
}

func (p *pipeline) actionEnterProcessing(ctx context.Context, e *fsm.Event) error {
	a := e.Args[0].(core.Artifact)
	p.log.Info("Picture generated, processing", "file", a.Path)
	p.d.notify(ctx, core.Event{
		Type:      core.EventPictureGenerated,
		CommandID: p.cmd.ID,
		Files:     []string{core.MediaPath(a.Path)},
		Sources:   []string{a.Path},
	})
	return nil
}

func (p *pipeline) actionEnterDone(ctx context.Context, e *fsm.Event) error {
	r := e.Args[0].(core.Processed)
	p.log.Info("Processing succeeded", "blurred", r.Blurred, "original", r.Original)
	p.d.notify(ctx, core.Event{Type: core.EventProcessSucceeded, CommandID: p.cmd.ID})

	files, sources := []string{core.MediaPath(r.Blurred)}, []string{r.Blurred}
	if r.Original != "" {
		files = append(files, core.MediaPath(r.Original))
		sources = append(sources, r.Original)
	}
	p.d.notify(ctx, core.Event{
		Type:      core.EventMediaAvailable,
		CommandID: p.cmd.ID,
		Files:     files,
		Sources:   sources,
	})
	return nil
}

func (p *pipeline) actionEnterFailed(ctx context.Context, e *fsm.Event) error {
	err := argError(e)
	p.log.Error(err, "Pipeline failed", "stage", e.Src)
	p.d.notify(ctx, core.Event{Type: core.EventError, CommandID: p.cmd.ID, Message: err.Error()})
	return nil
}

func (p *pipeline) actionEnterCancelled(ctx context.Context, e *fsm.Event) error {
	p.log.Info("Pipeline cancelled", "stage", e.Src)
	p.d.notify(ctx, core.Event{Type: core.EventCancelled, CommandID: p.cmd.ID, Message: argError(e).Error()})
	return nil
}

func argError(e *fsm.Event) error {
	if len(e.Args) > 0 {
		if err, ok := e.Args[0].(error); ok && err != nil {
			return err
		}
	}
	return errors.New("unknown error")
}
