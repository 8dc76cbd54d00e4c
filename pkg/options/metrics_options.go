package options

import (
	"errors"
	"strings"

	"github.com/spf13/pflag"
)

var _ IOptions = (*MetricsOptions)(nil)

// MetricsOptions controls the prometheus endpoint of the control server.
type MetricsOptions struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Path    string `json:"path" mapstructure:"path"`
}

func NewMetricsOptions() *MetricsOptions {
	return &MetricsOptions{
		Enabled: true,
		Path:    "/metrics",
	}
}

func (o *MetricsOptions) Validate() []error {
	if o == nil || !o.Enabled {
		return nil
	}

	if !strings.HasPrefix(o.Path, "/") {
		return []error{errors.New("metrics.path must start with /")}
	}
	return nil
}

func (o *MetricsOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.BoolVar(&o.Enabled, "metrics.enabled", o.Enabled, "Expose prometheus metrics on the control server.")
	fs.StringVar(&o.Path, "metrics.path", o.Path, "HTTP path of the metrics endpoint.")
}
