package blurcam

import (
	"fmt"

	"github.com/autopeer-io/blurcam/internal/blurcam/core"
	"github.com/autopeer-io/blurcam/internal/blurcam/dispatch"
	"github.com/autopeer-io/blurcam/internal/blurcam/hal"
	"github.com/autopeer-io/blurcam/internal/blurcam/hub"
	"github.com/autopeer-io/blurcam/internal/blurcam/preview"
	"github.com/autopeer-io/blurcam/internal/blurcam/server"
	"github.com/autopeer-io/blurcam/internal/blurcam/storage"
	"github.com/autopeer-io/blurcam/internal/blurcam/upload"
	"github.com/autopeer-io/blurcam/pkg/mqtt"
	"github.com/autopeer-io/blurcam/pkg/mqtt/topic"
	"github.com/autopeer-io/blurcam/pkg/options"
)

type Config struct {
	HttpOptions    *options.HttpOptions
	CameraOptions  *options.CameraOptions
	UploadOptions  *options.UploadOptions
	MqttOptions    *options.MqttOptions
	S3Options      *options.S3Options
	MetricsOptions *options.MetricsOptions
}

func (cfg *Config) NewAgent() (*Agent, error) {
	deviceID := DiscoverDeviceID(cfg.CameraOptions.DeviceID)

	device := hal.NewDevice(cfg.CameraOptions)
	frames := preview.NewBuffer()
	notifiers := core.Notifiers{logNotifier()}

	var servers []Server
	var d *dispatch.Dispatcher

	if cfg.S3Options.Enabled {
		provider, err := storage.NewMinIOProvider(cfg.S3Options)
		if err != nil {
			return nil, err
		}
		prefix := cfg.S3Options.Prefix
		if prefix == "" {
			prefix = deviceID
		}
		archiver := storage.NewArchiver(provider, prefix)
		notifiers = append(notifiers, archiver)
		servers = append(servers, archiver)
	}

	if cfg.MqttOptions.Enabled {
		mqttClient, topicBuilder, err := cfg.initMqttClientAndTopicBuilder(deviceID)
		if err != nil {
			return nil, fmt.Errorf("failed to init mqtt client: %w", err)
		}
		h := hub.New(deviceID, mqttClient, topicBuilder, func() bool { return d.Shutter() })
		notifiers = append(notifiers, h)
		servers = append(servers, h)
	}

	d = dispatch.New(dispatch.Config{
		Camera:    device,
		Processor: hal.NewBlurProcessor(nil, cfg.CameraOptions.BlurBlockSize),
		Options:   device,
		Uploader:  upload.New(cfg.UploadOptions),
		Notifier:  notifiers,
		Frames:    frames,
		DCIMDir:   cfg.CameraOptions.DCIMDir,
	})

	servers = append(servers, server.NewServer(cfg.HttpOptions, cfg.MetricsOptions, d, frames))

	return NewAgent(deviceID, d, servers, cfg.CameraOptions.CancelTimeout), nil
}

func (cfg *Config) initMqttClientAndTopicBuilder(deviceID string) (mqtt.Client, *topic.TopicBuilder, error) {
	topicBuilder := topic.NewTopicBuilder(cfg.MqttOptions.TopicRoot)

	mqttConfig := cfg.MqttOptions.ToClientConfig()
	if mqttConfig.ClientID == "" {
		mqttConfig.ClientID = fmt.Sprintf("blurcam-%s", deviceID)
	}

	mqttConfig.WillTopic = topicBuilder.Status(deviceID)
	mqttConfig.WillPayload = hub.WillMessage(deviceID)
	mqttConfig.WillQoS = 1
	mqttConfig.WillRetain = true

	mqttClient, err := mqtt.NewClient(mqttConfig)
	if err != nil {
		return nil, nil, err
	}

	return mqttClient, topicBuilder, nil
}
