package blurcam

import (
	"os"
	"strings"

	"github.com/autopeer-io/blurcam/pkg/log"
)

const (
	deviceIDEnv  = "BLURCAM_DEVICE_ID"
	deviceIDFile = "/etc/blurcam/device-id"
)

// DiscoverDeviceID picks the device identifier: the configured value first,
// then the BLURCAM_DEVICE_ID environment variable, then /etc/blurcam/device-id,
// and finally the hostname.
func DiscoverDeviceID(configured string) string {
	if configured != "" {
		return configured
	}

	if envID := os.Getenv(deviceIDEnv); envID != "" {
		log.Info("DeviceID detected from env", "id", envID)
		return envID
	}

	if content, err := os.ReadFile(deviceIDFile); err == nil {
		if id := strings.TrimSpace(string(content)); id != "" {
			log.Info("DeviceID detected from file", "id", id)
			return id
		}
	}

	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		return hostname
	}
	return "blurcam"
}
