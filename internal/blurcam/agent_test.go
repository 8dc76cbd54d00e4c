package blurcam

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autopeer-io/blurcam/internal/blurcam/dispatch"
	"github.com/autopeer-io/blurcam/pkg/options"
)

type funcServer func(ctx context.Context) error

func (f funcServer) Start(ctx context.Context) error { return f(ctx) }

func TestDiscoverDeviceID(t *testing.T) {
	assert.Equal(t, "configured", DiscoverDeviceID("configured"))

	t.Setenv(deviceIDEnv, "from-env")
	assert.Equal(t, "from-env", DiscoverDeviceID(""))

	t.Setenv(deviceIDEnv, "")
	if _, err := os.Stat(deviceIDFile); err != nil {
		host, _ := os.Hostname()
		assert.Equal(t, host, DiscoverDeviceID(""))
	}
}

func TestRunStopsOnContextAndClosesDispatcher(t *testing.T) {
	d := dispatch.New(dispatch.Config{})
	started := make(chan struct{})
	srv := funcServer(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewAgent("cam", d, []Server{srv}, time.Second).Run(ctx) }()

	<-started
	cancel()
	require.NoError(t, <-done)
	assert.True(t, d.Closed())
}

func TestRunReturnsServerFailure(t *testing.T) {
	d := dispatch.New(dispatch.Config{})
	boom := errors.New("bind failed")
	srv := funcServer(func(context.Context) error { return boom })

	err := NewAgent("cam", d, []Server{srv}, time.Second).Run(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.True(t, d.Closed())
}

func TestNewAgentWithMockCamera(t *testing.T) {
	cam := options.NewCameraOptions()
	cam.Mock = true
	cam.DeviceID = "cam-test"
	cam.DCIMDir = t.TempDir()

	cfg := &Config{
		HttpOptions:    options.NewHttpOptions(),
		CameraOptions:  cam,
		UploadOptions:  options.NewUploadOptions(),
		MqttOptions:    options.NewMqttOptions(),
		S3Options:      options.NewS3Options(),
		MetricsOptions: options.NewMetricsOptions(),
	}

	a, err := cfg.NewAgent()
	require.NoError(t, err)
	assert.Equal(t, "cam-test", a.deviceID)
	assert.Len(t, a.servers, 1)
}
