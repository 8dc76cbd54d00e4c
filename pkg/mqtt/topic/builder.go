package topic

import (
	"fmt"
)

// Constants defining the standard topic segments.
// Changing these values breaks compatibility with existing subscribers.
const (
	// SuffixEvents carries feedback events (Device -> Subscribers).
	// Structure: {root}/events/{deviceID}
	SuffixEvents = "events"

	// SuffixShutter carries remote shutter presses (Remote -> Device).
	// Structure: {root}/shutter/{deviceID}
	SuffixShutter = "shutter"

	// SuffixStatus carries the retained online/offline marker, including the last will.
	// Structure: {root}/status/{deviceID}
	SuffixStatus = "status"

	// Wildcard is the single-level wildcard; it matches exactly one topic level.
	Wildcard = "+"
)

// TopicBuilder encapsulates the logic for constructing MQTT topic strings.
type TopicBuilder struct {
	// root is the base namespace for all topics (e.g., "blurcam/v1").
	root string
}

// NewTopicBuilder creates a new instance of TopicBuilder with the specified root namespace.
func NewTopicBuilder(root string) *TopicBuilder {
	return &TopicBuilder{root: root}
}

// Events returns the topic a device publishes its feedback events on.
func (b *TopicBuilder) Events(deviceID string) string {
	return b.build(SuffixEvents, deviceID)
}

// EventsWildcard returns the filter matching events from every device.
// Result: {root}/events/+
func (b *TopicBuilder) EventsWildcard() string {
	return b.build(SuffixEvents, Wildcard)
}

// Shutter returns the topic a device listens on for remote shutter presses.
func (b *TopicBuilder) Shutter(deviceID string) string {
	return b.build(SuffixShutter, deviceID)
}

// Status returns the retained presence topic of a device.
func (b *TopicBuilder) Status(deviceID string) string {
	return b.build(SuffixStatus, deviceID)
}

// build constructs {root}/{suffix}/{identifier}.
func (b *TopicBuilder) build(suffix, id string) string {
	return fmt.Sprintf("%s/%s/%s", b.root, suffix, id)
}
