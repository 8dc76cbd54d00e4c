package core

import (
	"context"
	"time"
)

type EventType string

const (
	// EventCaptureStarted fires when the shutter is released.
	EventCaptureStarted EventType = "capture.started"
	// EventPictureGenerated fires when the capture produced a file and processing begins.
	EventPictureGenerated EventType = "picture.generated"
	// EventProcessSucceeded fires when the pipeline finished.
	EventProcessSucceeded EventType = "process.succeeded"
	// EventMediaAvailable announces new files. Files holds paths trimmed to the DCIM root.
	EventMediaAvailable EventType = "media.available"
	// EventError fires when the pipeline failed.
	EventError EventType = "error"
	// EventCancelled fires when the pipeline was cancelled.
	EventCancelled EventType = "cancelled"
)

// Event is a fire-and-forget feedback notification.
type Event struct {
	Type      EventType `json:"type"`
	CommandID string    `json:"commandId,omitempty"`

	// Files are media paths relative to the storage root, e.g. /DCIM/100RICOH/R0010001.JPG.
	Files []string `json:"files,omitempty"`

	// Sources are the local paths matching Files, index for index.
	Sources []string `json:"-"`

	Message string    `json:"message,omitempty"`
	Time    time.Time `json:"time"`
}

// Notifier consumes events. Notify must not block on I/O.
type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, ev Event)

func (f NotifierFunc) Notify(ctx context.Context, ev Event) { f(ctx, ev) }

// Notifiers fans an event out to every member.
type Notifiers []Notifier

func (ns Notifiers) Notify(ctx context.Context, ev Event) {
	for _, n := range ns {
		if n != nil {
			n.Notify(ctx, ev)
		}
	}
}
