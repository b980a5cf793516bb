package util

import (
	"strings"
	"testing"

	"github.com/ValentinKolb/vold/rpc/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapString(t *testing.T) {
	wrapped := WrapString("one two three four five six seven eight nine ten eleven twelve thirteen")
	for _, line := range strings.Split(wrapped, "\n") {
		assert.LessOrEqual(t, len(line), Wrap)
	}
	assert.Equal(t, "short text", WrapString("short   text"))
}

func TestGetClientConfig(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cmd := &cobra.Command{Use: "test"}
	SetupClientFlags(cmd)
	require.NoError(t, cmd.ParseFlags([]string{
		"--bootstrap-urls", "a:1, b:2,",
		"--store", "users",
		"--node-id", "3",
		"--resolver", "timestamp",
		"--transport-read-buffer", "64",
	}))
	require.NoError(t, BindCommandFlags(cmd))

	config := GetClientConfig()
	assert.Equal(t, []string{"a:1", "b:2"}, config.Transport.BootstrapURLs)
	assert.Equal(t, "users", config.StoreName)
	assert.Equal(t, 3, config.NodeID)
	assert.Equal(t, 64*1024, config.Transport.ReadBufferSize)
	assert.Equal(t, common.DefaultMaxFrameSize, config.Transport.MaxFrameSize)
	assert.Equal(t, common.DefaultProtocol, config.Transport.Protocol)
	assert.Equal(t, common.DefaultReconnectInterval, config.Transport.ReconnectInterval)
	assert.Equal(t, -1, config.Transport.TCPLingerSec)
	assert.NoError(t, config.Validate())

	s, err := GetSerializer(*config)
	require.NoError(t, err)
	assert.Equal(t, "pb0", s.Protocol())

	r, err := GetResolver(*config)
	require.NoError(t, err)
	assert.NotNil(t, r)
}
