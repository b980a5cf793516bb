package kv

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValue(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().Bool("json", false, "")

	value, err := parseValue(cmd, `{"a":1}`)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, value)

	require.NoError(t, cmd.Flags().Set("json", "true"))
	value, err = parseValue(cmd, `{"a":1}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": float64(1)}, value)

	_, err = parseValue(cmd, `{broken`)
	assert.Error(t, err)
}
