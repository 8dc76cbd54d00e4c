package hub

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autopeer-io/blurcam/internal/blurcam/core"
	"github.com/autopeer-io/blurcam/pkg/mqtt"
	"github.com/autopeer-io/blurcam/pkg/mqtt/topic"
)

type published struct {
	topic   string
	retain  bool
	payload []byte
}

type fakeClient struct {
	mu           sync.Mutex
	msgs         []published
	handlers     map[string]mqtt.MessageHandler
	disconnected bool
}

var _ mqtt.Client = (*fakeClient)(nil)

func newFakeClient() *fakeClient {
	return &fakeClient{handlers: make(map[string]mqtt.MessageHandler)}
}

func (f *fakeClient) Start(context.Context) error { return nil }

func (f *fakeClient) Disconnect(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnected = true
}

func (f *fakeClient) Publish(_ context.Context, t string, _ int, retain bool, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, published{topic: t, retain: retain, payload: payload})
	return nil
}

func (f *fakeClient) Subscribe(_ context.Context, t string, _ int, h mqtt.MessageHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[t] = h
	return nil
}

func (f *fakeClient) Unsubscribe(_ context.Context, t string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.handlers, t)
	return nil
}

func (f *fakeClient) AwaitConnection(context.Context) error { return nil }
func (f *fakeClient) IsConnected() bool                     { return true }

func (f *fakeClient) snapshot() []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]published(nil), f.msgs...)
}

func (f *fakeClient) handler(t string) mqtt.MessageHandler {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handlers[t]
}

func TestHubLifecycle(t *testing.T) {
	fc := newFakeClient()
	topics := topic.NewTopicBuilder("blurcam/v1")

	var presses int
	var pmu sync.Mutex
	h := New("cam-1", fc, topics, func() bool {
		pmu.Lock()
		defer pmu.Unlock()
		presses++
		return true
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Start(ctx) }()

	require.Eventually(t, func() bool { return fc.handler("blurcam/v1/shutter/cam-1") != nil }, time.Second, 5*time.Millisecond)

	fc.handler("blurcam/v1/shutter/cam-1")(ctx, "blurcam/v1/shutter/cam-1", nil)
	pmu.Lock()
	assert.Equal(t, 1, presses)
	pmu.Unlock()

	h.Notify(ctx, core.Event{Type: core.EventMediaAvailable, CommandID: "c1", Files: []string{"/DCIM/100RICOH/R0010001_blur.JPG"}, Sources: []string{"/secret"}})
	require.Eventually(t, func() bool { return len(fc.snapshot()) >= 2 }, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	msgs := fc.snapshot()
	require.Len(t, msgs, 3)

	assert.Equal(t, "blurcam/v1/status/cam-1", msgs[0].topic)
	assert.True(t, msgs[0].retain)
	assert.JSONEq(t, `{"deviceId":"cam-1","online":true}`, string(msgs[0].payload))

	assert.Equal(t, "blurcam/v1/events/cam-1", msgs[1].topic)
	assert.False(t, msgs[1].retain)
	var ev map[string]any
	require.NoError(t, json.Unmarshal(msgs[1].payload, &ev))
	assert.Equal(t, "media.available", ev["type"])
	assert.NotContains(t, ev, "Sources")
	assert.NotContains(t, string(msgs[1].payload), "/secret")

	assert.Equal(t, "blurcam/v1/status/cam-1", msgs[2].topic)
	assert.JSONEq(t, `{"deviceId":"cam-1","online":false,"reason":"Shutdown"}`, string(msgs[2].payload))

	fc.mu.Lock()
	assert.True(t, fc.disconnected)
	fc.mu.Unlock()
}

func TestNotifyDropsWhenFull(t *testing.T) {
	h := New("cam-1", newFakeClient(), topic.NewTopicBuilder("r"), nil)
	for j := 0; j < queueDepth+5; j++ {
		h.Notify(context.Background(), core.Event{Type: core.EventError})
	}
	assert.Len(t, h.queue, queueDepth)
}

func TestWillMessage(t *testing.T) {
	assert.JSONEq(t, `{"deviceId":"cam-1","online":false,"reason":"UnexpectedDisconnect"}`, string(WillMessage("cam-1")))
}
