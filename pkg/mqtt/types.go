package mqtt

import (
	"context"
)

// MessageHandler processes one inbound message. It runs on its own goroutine
// with the context passed to Start.
type MessageHandler func(ctx context.Context, topic string, payload []byte)

// Client is the MQTT v5 connection the agent publishes events and receives
// remote commands through.
type Client interface {
	// Start launches the connection manager and returns without waiting for
	// the first connection. Reconnects happen in the background until ctx ends.
	Start(ctx context.Context) error

	// Disconnect sends DISCONNECT and stops reconnecting.
	Disconnect(ctx context.Context)

	// Publish sends payload. It fails fast while the client is offline.
	Publish(ctx context.Context, topic string, qos int, retain bool, payload []byte) error

	// Subscribe registers handler for filter. Registrations made while offline
	// are sent on the next connection, and all of them are replayed on reconnect.
	Subscribe(ctx context.Context, filter string, qos int, handler MessageHandler) error

	// Unsubscribe drops the handler for filter.
	Unsubscribe(ctx context.Context, filter string) error

	// AwaitConnection blocks until connected or ctx is done.
	AwaitConnection(ctx context.Context) error

	// IsConnected reports the state seen by the last connection callback.
	IsConnected() bool
}
