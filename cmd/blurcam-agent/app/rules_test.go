package app

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRulesCommand(t *testing.T) {
	cmd := newRulesCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())

	s := out.String()
	assert.Contains(t, s, "camera.takePicture")
	assert.Contains(t, s, "camera.uploadImage")
	assert.Contains(t, s, "REQUIRES FREE")
}
