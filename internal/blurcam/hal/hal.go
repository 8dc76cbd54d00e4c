package hal

import (
	"github.com/autopeer-io/blurcam/internal/blurcam/core"
	"github.com/autopeer-io/blurcam/pkg/options"
)

// Device is the camera side of the agent.
type Device interface {
	core.Camera
	core.OptionStore
}

// NewDevice selects the mock or the HTTP camera from opts.
func NewDevice(opts *options.CameraOptions) Device {
	if opts.Mock {
		return NewMockCamera(opts.DCIMDir)
	}
	return NewHTTPCamera(opts.Endpoint, opts.DCIMDir, opts.PollInterval)
}
