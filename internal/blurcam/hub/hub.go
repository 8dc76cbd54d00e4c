package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/autopeer-io/blurcam/internal/blurcam/core"
	"github.com/autopeer-io/blurcam/pkg/log"
	"github.com/autopeer-io/blurcam/pkg/mqtt"
	"github.com/autopeer-io/blurcam/pkg/mqtt/topic"
)

const (
	qos        = 1
	queueDepth = 64
)

// Presence is the retained payload of the status topic. The offline variant
// doubles as the last will.
type Presence struct {
	DeviceID string `json:"deviceId"`
	Online   bool   `json:"online"`
	Reason   string `json:"reason,omitempty"`
}

// ShutterFunc presses the shutter and reports whether a capture started.
type ShutterFunc func() bool

// Hub bridges the agent and the MQTT broker: events go out on the events
// topic and remote shutter presses come in on the shutter topic.
type Hub struct {
	deviceID string

	mc      mqtt.Client
	topics  *topic.TopicBuilder
	shutter ShutterFunc

	queue chan core.Event
	log   log.Logger
}

var _ core.Notifier = (*Hub)(nil)

func New(deviceID string, client mqtt.Client, topics *topic.TopicBuilder, shutter ShutterFunc) *Hub {
	return &Hub{
		deviceID: deviceID,
		mc:       client,
		topics:   topics,
		shutter:  shutter,
		queue:    make(chan core.Event, queueDepth),
		log:      log.WithName("hub").WithValues("device", deviceID),
	}
}

// WillMessage returns the last will payload for deviceID.
func WillMessage(deviceID string) []byte {
	payload, _ := json.Marshal(Presence{DeviceID: deviceID, Online: false, Reason: "UnexpectedDisconnect"})
	return payload
}

// Notify queues ev for publishing. Events are dropped when the queue is full.
func (h *Hub) Notify(_ context.Context, ev core.Event) {
	select {
	case h.queue <- ev:
	default:
		h.log.Warn("Event queue full, dropping event", "type", ev.Type, "command", ev.CommandID)
	}
}

// Start connects, announces presence and publishes queued events until ctx is done.
func (h *Hub) Start(ctx context.Context) error {
	if err := h.mc.Start(ctx); err != nil {
		return err
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.publishPresence(shutdownCtx, false, "Shutdown"); err != nil {
			h.log.Error(err, "Failed to publish offline status")
		}
		h.mc.Disconnect(shutdownCtx)
		h.log.Info("MQTT client disconnected")
	}()

	h.log.Info("Waiting for MQTT connection...")
	if err := h.mc.AwaitConnection(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	h.log.Info("MQTT connected")

	if err := h.publishPresence(ctx, true, ""); err != nil {
		h.log.Error(err, "Failed to publish online status")
	}

	shutterTopic := h.topics.Shutter(h.deviceID)
	if err := h.mc.Subscribe(ctx, shutterTopic, qos, h.handleShutter); err != nil {
		return fmt.Errorf("failed to subscribe to topic: %s, err: %w", shutterTopic, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-h.queue:
			h.publish(ctx, ev)
		}
	}
}

func (h *Hub) handleShutter(_ context.Context, _ string, _ []byte) {
	if h.shutter == nil {
		return
	}
	if !h.shutter() {
		h.log.Info("Remote shutter ignored, camera busy")
	}
}

func (h *Hub) publish(ctx context.Context, ev core.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.log.Error(err, "Failed to encode event", "type", ev.Type)
		return
	}
	if err := h.mc.Publish(ctx, h.topics.Events(h.deviceID), qos, false, payload); err != nil {
		h.log.Error(err, "Failed to publish event", "type", ev.Type, "command", ev.CommandID)
	}
}

func (h *Hub) publishPresence(ctx context.Context, online bool, reason string) error {
	payload, err := json.Marshal(Presence{DeviceID: h.deviceID, Online: online, Reason: reason})
	if err != nil {
		return err
	}
	return h.mc.Publish(ctx, h.topics.Status(h.deviceID), qos, true, payload)
}
