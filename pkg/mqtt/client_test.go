package mqtt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopicsMatch(t *testing.T) {
	tests := []struct {
		filter, topic string
		want          bool
	}{
		{"a/b/c", "a/b/c", true},
		{"a/b/c", "a/b/d", false},
		{"a/+/c", "a/x/c", true},
		{"a/+/c", "a/x/y/c", false},
		{"a/#", "a/x/y/c", true},
		{"a/+", "a", false},
		{"+/shutter/+", "blurcam/shutter/cam-1", true},
	}
	for _, tt := range tests {
		t.Run(tt.filter+"|"+tt.topic, func(t *testing.T) {
			assert.Equal(t, tt.want, topicsMatch(tt.filter, tt.topic))
		})
	}
}

func TestTopicFilterStripsSharedPrefix(t *testing.T) {
	assert.Equal(t, "a/b", topicFilter("$share/group/a/b"))
	assert.Equal(t, "a/b", topicFilter("a/b"))
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(nil)
	assert.Error(t, err)

	_, err = NewClient(&ClientConfig{BrokerURL: "localhost"})
	assert.Error(t, err)

	_, err = NewClient(&ClientConfig{BrokerURL: "tcp://localhost:1883", WillQoS: 3})
	assert.Error(t, err)

	c, err := NewClient(&ClientConfig{BrokerURL: "tcp://localhost:1883"})
	require.NoError(t, err)
	assert.False(t, c.IsConnected())
}

func TestDefaultsApplied(t *testing.T) {
	cfg := &ClientConfig{BrokerURL: "tcp://localhost:1883"}
	setDefaultConfig(cfg)
	assert.Equal(t, uint16(60), cfg.KeepAlive)
	assert.NotZero(t, cfg.ConnectTimeout)
	assert.NotZero(t, cfg.ReconnectBackoff)
}

func TestWillMessage(t *testing.T) {
	c := &pahoClient{cfg: &ClientConfig{}}
	assert.Nil(t, c.willMessage())

	c.cfg.WillTopic = "blurcam/v1/status/cam-1"
	c.cfg.WillPayload = []byte("offline")
	c.cfg.WillRetain = true
	w := c.willMessage()
	require.NotNil(t, w)
	assert.Equal(t, "offline", string(w.Payload))
	assert.True(t, w.Retain)
}

func TestClientNotStarted(t *testing.T) {
	c, err := NewClient(&ClientConfig{BrokerURL: "tcp://localhost:1883"})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	assert.Error(t, c.Publish(ctx, "x", 0, false, nil))
	assert.Error(t, c.Unsubscribe(ctx, "x"))
}
