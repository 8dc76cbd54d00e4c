package options

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultAgentOptionsAreValid(t *testing.T) {
	o := NewAgentOptions()
	require.NoError(t, o.Validate())

	cfg, err := o.Config()
	require.NoError(t, err)
	assert.Same(t, o.CameraOptions, cfg.CameraOptions)
}

func TestValidateAggregatesErrors(t *testing.T) {
	o := NewAgentOptions()
	o.HttpOptions.Addr = "nope"
	o.UploadOptions.ChunkSize = 0
	o.Log.Format = "xml"

	err := o.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
	assert.Contains(t, err.Error(), "upload.chunk-size")
	assert.Contains(t, err.Error(), "log.format")
}

func TestFlagsCoverEveryGroup(t *testing.T) {
	fss := NewAgentOptions().Flags()
	for _, name := range []string{"http", "camera", "upload", "mqtt", "s3", "metrics", "Log"} {
		assert.Contains(t, fss.FlagSets, name)
	}
	assert.NotNil(t, fss.FlagSet("camera").Lookup("camera.mock"))
}
