package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/autopeer-io/blurcam/internal/blurcam/command"
	"github.com/autopeer-io/blurcam/internal/blurcam/core"
	"github.com/autopeer-io/blurcam/internal/blurcam/preview"
	"github.com/autopeer-io/blurcam/internal/blurcam/slot"
	"github.com/autopeer-io/blurcam/internal/blurcam/upload"
	"github.com/autopeer-io/blurcam/internal/pkg/metrics"
	"github.com/autopeer-io/blurcam/pkg/log"
)

// Outcome is the immediate result of Dispatch.
type Outcome int

const (
	// Started means the command was accepted. Its reply is delivered, or will be, through its responder.
	Started Outcome = iota
	// Rejected means the command was answered with an error without starting anything.
	Rejected
)

func (o Outcome) String() string {
	if o == Started {
		return "started"
	}
	return "rejected"
}

// Config wires the dispatcher to its collaborators. Notifier may be nil.
type Config struct {
	Camera    core.Camera
	Processor core.Processor
	Options   core.OptionStore
	Uploader  core.Uploader
	Notifier  core.Notifier
	Frames    *preview.Buffer

	// DCIMDir is where uploadImage resolves file URLs.
	DCIMDir string
}

// Dispatcher gates commands on slot occupancy, runs accepted operations in the
// background and routes each outcome to the command's responder exactly once.
type Dispatcher struct {
	slots     *slot.Table
	camera    core.Camera
	processor core.Processor
	options   core.OptionStore
	uploader  core.Uploader
	notifier  core.Notifier
	frames    *preview.Buffer
	dcimDir   string

	wg  sync.WaitGroup
	log log.Logger
}

func New(cfg Config) *Dispatcher {
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = core.Notifiers(nil)
	}
	frames := cfg.Frames
	if frames == nil {
		frames = preview.NewBuffer()
	}
	return &Dispatcher{
		slots:     slot.NewTable(),
		camera:    cfg.Camera,
		processor: cfg.Processor,
		options:   cfg.Options,
		uploader:  cfg.Uploader,
		notifier:  notifier,
		frames:    frames,
		dcimDir:   cfg.DCIMDir,
		log:       log.WithName("dispatch"),
	}
}

// Dispatch decides whether cmd may start. Rejections are answered before Dispatch returns.
func (d *Dispatcher) Dispatch(cmd *command.Command) Outcome {
	logger := d.log.WithValues("command", cmd.Name, "id", cmd.ID)

	switch cmd.Name {
	case command.GetStatus:
		status := slot.DeriveStatus(d.slots.Snapshot())
		if status == command.StatusBusy {
			return d.reject(cmd, command.DeviceBusy, errors.New("capture and processing both in progress"))
		}
		d.reply(cmd, command.Device{Command: cmd.Name, State: command.StateDone, Status: status})
		return Started

	case command.GetLivePreview:
		d.reply(cmd, command.Frame{Data: d.frames.Load()})
		return Started

	case command.StartLivePreview:
		h, err := d.slots.Replace(slot.LivePreview)
		if err != nil {
			return d.reject(cmd, command.Cancelled, err)
		}
		d.startPreview(h)
		d.reply(cmd, command.Done(cmd.Name))
		return Started
	}

	rule, ok := RuleFor(cmd.Name)
	if !ok {
		return d.reject(cmd, command.UnknownCommand, fmt.Errorf("unknown command %q", cmd.Name))
	}

	// Gating is checked before parameters are parsed.
	h, err := d.slots.Acquire(rule.Slot, rule.Requires...)
	switch {
	case errors.Is(err, slot.ErrClosed):
		return d.reject(cmd, command.Cancelled, err)
	case err != nil:
		logger.Debug("Command rejected", "reason", err)
		return d.reject(cmd, command.DeviceBusy, err)
	}

	op, err := d.prepare(cmd)
	if err != nil {
		h.Release()
		return d.reject(cmd, command.InvalidParameterValue, err)
	}
	metrics.CommandsTotal.WithLabelValues(string(cmd.Name), "started").Inc()
	logger.Info("Command started", "slot", h.ID())

	if cmd.Name == command.TakePicture {
		d.slots.Cancel(slot.LivePreview, slot.ErrSuperseded)
		d.startPipeline(cmd, h)
		d.reply(cmd, command.InProgress(cmd.Name, 0))
		return Started
	}

	h.OnAbandon(func() {
		d.reply(cmd, command.NewError(cmd.Name, command.Cancelled, slot.ErrCancelled))
	})
	d.start(cmd, h, op)
	return Started
}

// Shutter starts a capture that nobody waits on. It reports whether the capture
// started; a busy or closed device ignores the press.
func (d *Dispatcher) Shutter() bool {
	h, err := d.slots.Acquire(shutterRule.Slot, shutterRule.Requires...)
	if err != nil {
		d.log.Debug("Shutter ignored", "reason", err)
		return false
	}
	d.log.Info("Shutter pressed")
	d.slots.Cancel(slot.LivePreview, slot.ErrSuperseded)
	d.startPipeline(command.New(command.TakePicture, nil, nil), h)
	return true
}

// Status derives the device status from the current occupancy.
func (d *Dispatcher) Status() command.DeviceStatus {
	return slot.DeriveStatus(d.slots.Snapshot())
}

// Closed reports whether CancelAll has run. A closed dispatcher rejects every gated command.
func (d *Dispatcher) Closed() bool {
	return d.slots.Closed()
}

// Snapshot exposes slot occupancy for probes and tests.
func (d *Dispatcher) Snapshot() slot.Snapshot {
	return d.slots.Snapshot()
}

// CancelAll stops every running operation and leaves every slot empty. Pending
// responses of hard operations are answered CANCELLED; the live preview just stops.
// Operations that ignore cancellation past ctx are abandoned.
func (d *Dispatcher) CancelAll(ctx context.Context) error {
	d.log.Info("Cancelling all operations")
	err := d.slots.CancelAll(ctx)
	if err != nil {
		d.log.Error(err, "Some operations were abandoned")
	}
	return err
}

// Wait blocks until every background goroutine has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// operation is the work of one slot-occupying command.
type operation func(ctx context.Context) (command.Reply, error)

// completion is the single outcome of an operation.
type completion struct {
	reply command.Reply
	err   error
}

// start runs op in the background. Its completion is sent on a channel that
// await consumes exactly once.
func (d *Dispatcher) start(cmd *command.Command, h *slot.Handle, op operation) {
	done := make(chan completion, 1)

	d.wg.Add(2)
	go func() {
		defer d.wg.Done()
		reply, err := op(h.Context())
		done <- completion{reply: reply, err: err}
	}()
	go func() {
		defer d.wg.Done()
		d.await(cmd, h, done)
	}()
}

func (d *Dispatcher) await(cmd *command.Command, h *slot.Handle, done <-chan completion) {
	c := <-done

	var reply command.Reply
	switch {
	case c.err != nil:
		reply = d.toError(cmd.Name, h, c.err)
	case c.reply == nil:
		reply = command.NewError(cmd.Name, command.InvalidParameterValue, errors.New("no result"))
	default:
		reply = c.reply
	}

	// The slot is emptied before the caller hears back, so a follow-up command is never refused by its own predecessor.
	if !h.Release() {
		d.log.Debug("Slot already cleared", "command", cmd.Name, "id", cmd.ID)
	}
	d.reply(cmd, reply)
}

// toError maps an operation failure onto the error taxonomy. It must run before
// the handle is released.
func (d *Dispatcher) toError(name command.Name, h *slot.Handle, err error) *command.Error {
	var cerr *command.Error
	switch {
	case h.Context().Err() != nil:
		return command.NewError(name, command.Cancelled, err)
	case errors.As(err, &cerr):
		return cerr
	case errors.Is(err, upload.ErrUnexpectedStatus), name == command.UploadImage:
		return command.NewError(name, command.UploadFailed, err)
	default:
		return command.NewError(name, command.InvalidParameterValue, err)
	}
}

// prepare validates parameters and returns the operation of a gated command.
func (d *Dispatcher) prepare(cmd *command.Command) (operation, error) {
	switch cmd.Name {
	case command.TakePicture:
		return nil, nil

	case command.SetOptions:
		return func(ctx context.Context) (command.Reply, error) {
			if err := d.options.SetOptions(ctx, cmd.Parameters); err != nil {
				return nil, err
			}
			return command.Done(cmd.Name), nil
		}, nil

	case command.GetOptions:
		return d.rawOperation(cmd, d.options.GetOptions), nil

	case command.CheckImageStatus:
		return d.rawOperation(cmd, d.camera.CheckStatus), nil

	case command.UploadImage:
		var p struct {
			FileURL   string `json:"fileUrl"`
			UploadURL string `json:"uploadUrl"`
		}
		if err := cmd.Decode(&p); err != nil {
			return nil, err
		}
		if p.FileURL == "" || p.UploadURL == "" {
			return nil, errors.New("fileUrl and uploadUrl are required")
		}
		src, ok := core.LocalPath(d.dcimDir, p.FileURL)
		if !ok {
			return nil, fmt.Errorf("fileUrl %q is not a camera file", p.FileURL)
		}
		return func(ctx context.Context) (command.Reply, error) {
			body, err := d.uploader.Upload(ctx, src, p.UploadURL)
			if err != nil {
				return nil, command.NewError(cmd.Name, command.UploadFailed, err)
			}
			return command.Raw{Command: cmd.Name, Body: []byte(body)}, nil
		}, nil
	}
	return nil, fmt.Errorf("no operation for %q", cmd.Name)
}

func (d *Dispatcher) rawOperation(cmd *command.Command, fn func(context.Context, json.RawMessage) (json.RawMessage, error)) operation {
	return func(ctx context.Context) (command.Reply, error) {
		raw, err := fn(ctx, cmd.Parameters)
		if err != nil {
			return nil, err
		}
		if raw == nil {
			return nil, command.NewError(cmd.Name, command.InvalidParameterValue, errors.New("no result"))
		}
		return command.Raw{Command: cmd.Name, Body: raw}, nil
	}
}

func (d *Dispatcher) startPreview(h *slot.Handle) {
	w := preview.NewWorker(d.camera, d.frames)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer h.Release()
		if err := w.Run(h.Context()); err != nil {
			d.log.Error(err, "Live preview failed")
		}
	}()
}

func (d *Dispatcher) reject(cmd *command.Command, code command.ErrorCode, err error) Outcome {
	d.reply(cmd, command.NewError(cmd.Name, code, err))
	return Rejected
}

func (d *Dispatcher) reply(cmd *command.Command, r command.Reply) {
	result := "done"
	switch v := r.(type) {
	case *command.Error:
		result = string(v.Code)
	case command.Status:
		result = string(v.State)
	}
	metrics.CommandsTotal.WithLabelValues(string(cmd.Name), result).Inc()
	cmd.Reply(r)
}

func (d *Dispatcher) notify(ctx context.Context, ev core.Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	d.notifier.Notify(ctx, ev)
}
