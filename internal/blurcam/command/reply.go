package command

import "encoding/json"

// Reply is one terminal answer to a command. The concrete types are Status,
// Raw, Frame, Device and *Error.
type Reply interface {
	isReply()
}

// Status is the {command, state, progress} envelope.
type Status struct {
	Command  Name     `json:"name"`
	State    State    `json:"state"`
	Progress *float64 `json:"progress,omitempty"`
}

// InProgress is the acknowledgment sent as soon as a capture starts.
func InProgress(cmd Name, progress float64) Status {
	return Status{Command: cmd, State: StateInProgress, Progress: &progress}
}

// Done is the acknowledgment of a completed operation without a payload.
func Done(cmd Name) Status {
	return Status{Command: cmd, State: StateDone}
}

// Raw carries a payload produced by a collaborator, passed through verbatim.
type Raw struct {
	Command Name
	Body    []byte
}

// Frame is a binary live preview frame. Data is empty before the first frame.
type Frame struct {
	Data []byte
}

// Device answers GetStatus.
type Device struct {
	Command Name         `json:"name"`
	State   State        `json:"state"`
	Status  DeviceStatus `json:"status"`
}

func (Status) isReply() {}
func (Raw) isReply()    {}
func (Frame) isReply()  {}
func (Device) isReply() {}

// JSON reports whether the raw body looks like a JSON document.
func (r Raw) JSON() bool {
	return json.Valid(r.Body)
}
