package options

import (
	"errors"
	"net/url"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*CameraOptions)(nil)

// CameraOptions describes how the agent reaches the camera and where media lives.
type CameraOptions struct {
	// DeviceID identifies this camera on the MQTT topics. Defaults to the hostname.
	DeviceID string `json:"device-id" mapstructure:"device-id"`

	// Mock selects the in-process camera instead of the device camera API.
	Mock bool `json:"mock" mapstructure:"mock"`

	// Endpoint is the base URL of the device's local camera API.
	Endpoint string `json:"endpoint" mapstructure:"endpoint"`

	// DCIMDir is the local directory holding captured media.
	DCIMDir string `json:"dcim-dir" mapstructure:"dcim-dir"`

	// PollInterval is the status polling period while a capture is in progress.
	PollInterval time.Duration `json:"poll-interval" mapstructure:"poll-interval"`

	// CancelTimeout bounds how long shutdown waits for running operations to acknowledge cancellation.
	CancelTimeout time.Duration `json:"cancel-timeout" mapstructure:"cancel-timeout"`

	// BlurBlockSize is the pixelation cell size used by the face blur processor.
	BlurBlockSize int `json:"blur-block-size" mapstructure:"blur-block-size"`
}

func NewCameraOptions() *CameraOptions {
	return &CameraOptions{
		Mock:          false,
		Endpoint:      "http://127.0.0.1:8080",
		DCIMDir:       "/storage/emulated/0/DCIM",
		PollInterval:  500 * time.Millisecond,
		CancelTimeout: 5 * time.Second,
		BlurBlockSize: 24,
	}
}

func (o *CameraOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errs := []error{}

	if !o.Mock {
		if u, err := url.Parse(o.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, errors.New("camera.endpoint must be an absolute URL"))
		}
	}
	if o.DCIMDir == "" {
		errs = append(errs, errors.New("camera.dcim-dir is required"))
	}
	if o.PollInterval <= 0 {
		errs = append(errs, errors.New("camera.poll-interval must be positive"))
	}
	if o.CancelTimeout <= 0 {
		errs = append(errs, errors.New("camera.cancel-timeout must be positive"))
	}
	if o.BlurBlockSize < 2 {
		errs = append(errs, errors.New("camera.blur-block-size must be at least 2"))
	}

	return errs
}

func (o *CameraOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.DeviceID, "camera.device-id", o.DeviceID, "Device identifier used on MQTT topics (defaults to hostname).")
	fs.BoolVar(&o.Mock, "camera.mock", o.Mock, "Use the in-process mock camera instead of the device camera API.")
	fs.StringVar(&o.Endpoint, "camera.endpoint", o.Endpoint, "Base URL of the device's local camera API.")
	fs.StringVar(&o.DCIMDir, "camera.dcim-dir", o.DCIMDir, "Local directory holding captured media.")
	fs.DurationVar(&o.PollInterval, "camera.poll-interval", o.PollInterval, "Status polling period while a capture is in progress.")
	fs.DurationVar(&o.CancelTimeout, "camera.cancel-timeout", o.CancelTimeout, "How long shutdown waits for running operations to stop.")
	fs.IntVar(&o.BlurBlockSize, "camera.blur-block-size", o.BlurBlockSize, "Pixelation cell size of the face blur.")
}
