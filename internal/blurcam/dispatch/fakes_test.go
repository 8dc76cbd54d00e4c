package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/autopeer-io/blurcam/internal/blurcam/command"
	"github.com/autopeer-io/blurcam/internal/blurcam/core"
)

// recorder is a responder that keeps every delivered reply.
type recorder struct {
	ch chan command.Reply
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan command.Reply, 8)}
}

func (r *recorder) Respond(reply command.Reply) { r.ch <- reply }

func (r *recorder) wait(t *testing.T) command.Reply {
	t.Helper()
	select {
	case reply := <-r.ch:
		return reply
	case <-time.After(2 * time.Second):
		t.Fatal("no reply")
		return nil
	}
}

func (r *recorder) none(t *testing.T) {
	t.Helper()
	select {
	case reply := <-r.ch:
		t.Fatalf("unexpected second reply %#v", reply)
	case <-time.After(20 * time.Millisecond):
	}
}

func requireCode(t *testing.T, reply command.Reply, code command.ErrorCode) {
	t.Helper()
	cerr, ok := reply.(*command.Error)
	require.True(t, ok, "expected error reply, got %#v", reply)
	require.Equal(t, code, cerr.Code, cerr.Error())
}

// gate blocks an operation until released or cancelled.
type gate struct {
	entered chan struct{}
	release chan error
}

func newGate() *gate {
	return &gate{entered: make(chan struct{}, 16), release: make(chan error, 16)}
}

func (g *gate) pass(ctx context.Context) error {
	g.entered <- struct{}{}
	select {
	case err := <-g.release:
		return err
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}

func (g *gate) waitEntered(t *testing.T) {
	t.Helper()
	select {
	case <-g.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("operation never started")
	}
}

type fakeCamera struct {
	capture *gate
	status  json.RawMessage
	preview chan []byte

	captures atomic.Int32
}

func (c *fakeCamera) Capture(ctx context.Context, _ json.RawMessage) (core.Artifact, error) {
	c.captures.Add(1)
	if c.capture != nil {
		if err := c.capture.pass(ctx); err != nil {
			return core.Artifact{}, err
		}
	}
	return core.Artifact{Path: "/storage/emulated/0/DCIM/100RICOH/R0010001.JPG"}, nil
}

func (c *fakeCamera) CheckStatus(ctx context.Context, _ json.RawMessage) (json.RawMessage, error) {
	return c.status, nil
}

func (c *fakeCamera) StartPreview(ctx context.Context) (core.PreviewStream, error) {
	return &fakeStream{frames: c.preview}, nil
}

type fakeStream struct {
	frames chan []byte
}

func (s *fakeStream) Next(ctx context.Context) ([]byte, error) {
	select {
	case f := <-s.frames:
		return f, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *fakeStream) Close() error { return nil }

type fakeProcessor struct {
	gate  *gate
	err   error
	calls atomic.Int32
}

func (p *fakeProcessor) Process(ctx context.Context, a core.Artifact) (core.Processed, error) {
	p.calls.Add(1)
	if p.gate != nil {
		if err := p.gate.pass(ctx); err != nil {
			return core.Processed{}, err
		}
	}
	if p.err != nil {
		return core.Processed{}, p.err
	}
	return core.Processed{Blurred: a.Path[:len(a.Path)-4] + "_blur.JPG", Original: a.Path}, nil
}

type fakeOptions struct {
	gate   *gate
	result json.RawMessage
	err    error

	running atomic.Int32
	overlap atomic.Int32
}

func (o *fakeOptions) enter(ctx context.Context) error {
	if o.running.Add(1) > 1 {
		o.overlap.Add(1)
	}
	defer o.running.Add(-1)
	if o.gate != nil {
		return o.gate.pass(ctx)
	}
	return nil
}

func (o *fakeOptions) GetOptions(ctx context.Context, _ json.RawMessage) (json.RawMessage, error) {
	if err := o.enter(ctx); err != nil {
		return nil, err
	}
	return o.result, o.err
}

func (o *fakeOptions) SetOptions(ctx context.Context, _ json.RawMessage) error {
	if err := o.enter(ctx); err != nil {
		return err
	}
	return o.err
}

// stubbornUploader ignores cancellation.
type stubbornUploader struct {
	block chan struct{}
}

func (u *stubbornUploader) Upload(ctx context.Context, src, dst string) (string, error) {
	<-u.block
	return "", errors.New("too late")
}

// events collects notifications.
type events struct {
	mu  sync.Mutex
	all []core.Event
	ch  chan core.Event
}

func newEvents() *events {
	return &events{ch: make(chan core.Event, 64)}
}

func (e *events) Notify(_ context.Context, ev core.Event) {
	e.mu.Lock()
	e.all = append(e.all, ev)
	e.mu.Unlock()
	e.ch <- ev
}

func (e *events) waitFor(t *testing.T, typ core.EventType) core.Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-e.ch:
			if ev.Type == typ {
				return ev
			}
		case <-deadline:
			t.Fatalf("event %s not received", typ)
		}
	}
}

func (e *events) count(types ...core.EventType) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, ev := range e.all {
		for _, typ := range types {
			if ev.Type == typ {
				n++
			}
		}
	}
	return n
}
