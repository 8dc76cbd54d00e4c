package options

import (
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/autopeer-io/blurcam/internal/blurcam"
	"github.com/autopeer-io/blurcam/pkg/app"
	"github.com/autopeer-io/blurcam/pkg/log"
	"github.com/autopeer-io/blurcam/pkg/options"
)

type AgentOptions struct {
	HttpOptions    *options.HttpOptions    `json:"http" mapstructure:"http"`
	CameraOptions  *options.CameraOptions  `json:"camera" mapstructure:"camera"`
	UploadOptions  *options.UploadOptions  `json:"upload" mapstructure:"upload"`
	MqttOptions    *options.MqttOptions    `json:"mqtt" mapstructure:"mqtt"`
	S3Options      *options.S3Options      `json:"s3" mapstructure:"s3"`
	MetricsOptions *options.MetricsOptions `json:"metrics" mapstructure:"metrics"`
	Log            *log.Options            `json:"log" mapstructure:"log"`
}

var _ app.NamedFlagSetOptions = (*AgentOptions)(nil)

func NewAgentOptions() *AgentOptions {
	o := &AgentOptions{
		HttpOptions:    options.NewHttpOptions(),
		CameraOptions:  options.NewCameraOptions(),
		UploadOptions:  options.NewUploadOptions(),
		MqttOptions:    options.NewMqttOptions(),
		S3Options:      options.NewS3Options(),
		MetricsOptions: options.NewMetricsOptions(),
		Log:            log.NewOptions(),
	}

	return o
}

func (o *AgentOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	o.HttpOptions.AddFlags(fss.FlagSet("http"))
	o.CameraOptions.AddFlags(fss.FlagSet("camera"))
	o.UploadOptions.AddFlags(fss.FlagSet("upload"))
	o.MqttOptions.AddFlags(fss.FlagSet("mqtt"))
	o.S3Options.AddFlags(fss.FlagSet("s3"))
	o.MetricsOptions.AddFlags(fss.FlagSet("metrics"))
	o.Log.AddFlags(fss.FlagSet("Log"))
	return fss
}

func (o *AgentOptions) Complete() error {
	return nil
}

func (o *AgentOptions) Validate() error {
	errs := []error{}
	errs = append(errs, o.HttpOptions.Validate()...)
	errs = append(errs, o.CameraOptions.Validate()...)
	errs = append(errs, o.UploadOptions.Validate()...)
	errs = append(errs, o.MqttOptions.Validate()...)
	errs = append(errs, o.S3Options.Validate()...)
	errs = append(errs, o.MetricsOptions.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return utilerrors.NewAggregate(errs)
}

func (o *AgentOptions) Config() (*blurcam.Config, error) {
	return &blurcam.Config{
		HttpOptions:    o.HttpOptions,
		CameraOptions:  o.CameraOptions,
		UploadOptions:  o.UploadOptions,
		MqttOptions:    o.MqttOptions,
		S3Options:      o.S3Options,
		MetricsOptions: o.MetricsOptions,
	}, nil
}
