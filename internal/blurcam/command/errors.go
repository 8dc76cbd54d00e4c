package command

import (
	"encoding/json"
	"fmt"
)

// ErrorCode is the closed set of errors a command can be answered with.
type ErrorCode string

const (
	DeviceBusy            ErrorCode = "DEVICE_BUSY"
	InvalidParameterValue ErrorCode = "INVALID_PARAMETER_VALUE"
	UnknownCommand        ErrorCode = "UNKNOWN_COMMAND"
	Cancelled             ErrorCode = "CANCELLED"
	UploadFailed          ErrorCode = "UPLOAD_FAILED"
)

// Error is both a Go error and the error envelope sent back to the caller.
type Error struct {
	Command Name
	Code    ErrorCode
	Message string

	// Err is the underlying cause. It is logged but never serialized.
	Err error
}

var _ Reply = (*Error)(nil)

// NewError builds an Error for cmd. err may be nil.
func NewError(cmd Name, code ErrorCode, err error) *Error {
	e := &Error{Command: cmd, Code: code, Err: err}
	if err != nil {
		e.Message = err.Error()
	}
	return e
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %s", e.Command, e.Code)
	}
	return fmt.Sprintf("%s: %s: %s", e.Command, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error carrying the same code, so errors.Is(err, &Error{Code: DeviceBusy}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code && (t.Command == "" || t.Command == e.Command)
}

func (e *Error) isReply() {}

func (e *Error) MarshalJSON() ([]byte, error) {
	type body struct {
		Code    ErrorCode `json:"code"`
		Message string    `json:"message,omitempty"`
	}
	return json.Marshal(struct {
		Name  Name   `json:"name"`
		State string `json:"state"`
		Error body   `json:"error"`
	}{
		Name:  e.Command,
		State: "error",
		Error: body{Code: e.Code, Message: e.Message},
	})
}
