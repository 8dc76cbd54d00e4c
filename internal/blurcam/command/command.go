package command

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Responder is the pending response of one command, owned by the transport.
type Responder interface {
	Respond(Reply)
}

// ResponderFunc adapts a function to Responder.
type ResponderFunc func(Reply)

func (f ResponderFunc) Respond(r Reply) { f(r) }

// Discard drops every reply. Commands raised by the shutter use it.
var Discard Responder = ResponderFunc(func(Reply) {})

type once struct {
	once sync.Once
	r    Responder
}

func (o *once) Respond(r Reply) {
	o.once.Do(func() { o.r.Respond(r) })
}

// Once wraps r so that only the first reply is delivered.
func Once(r Responder) Responder {
	if r == nil {
		return Discard
	}
	if _, ok := r.(*once); ok {
		return r
	}
	return &once{r: r}
}

// Command is created per inbound request and consumed once by the dispatcher.
type Command struct {
	ID         string
	Name       Name
	Parameters json.RawMessage

	responder Responder
}

// New creates a command with a fresh ID. The responder receives at most one reply.
func New(name Name, params json.RawMessage, r Responder) *Command {
	return &Command{
		ID:         uuid.NewString(),
		Name:       name,
		Parameters: params,
		responder:  Once(r),
	}
}

// Reply delivers r unless a reply was already delivered.
func (c *Command) Reply(r Reply) {
	c.responder.Respond(r)
}

// Fail replies with an error envelope.
func (c *Command) Fail(code ErrorCode, err error) {
	c.Reply(NewError(c.Name, code, err))
}

// Decode unmarshals the parameters into v. Missing parameters decode as an
// empty object. Failures are reported as INVALID_PARAMETER_VALUE.
func (c *Command) Decode(v any) error {
	params := c.Parameters
	if len(params) == 0 || string(params) == "null" {
		params = json.RawMessage("{}")
	}
	if err := json.Unmarshal(params, v); err != nil {
		return NewError(c.Name, InvalidParameterValue, fmt.Errorf("decode parameters: %w", err))
	}
	return nil
}
