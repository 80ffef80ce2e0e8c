package cli

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnknownFlag_ShowsHelpAndUsageError(t *testing.T) {
	t.Parallel()
	for _, sub := range []string{"generate", "validate", "init", "watch", "targets"} {
		root := NewRootCmd()
		root.SetOut(io.Discard)
		root.SetErr(io.Discard)
		root.SetArgs([]string{sub, "--unknown-flag"})

		err := root.Execute()
		require.Error(t, err, sub)
		_, ok := err.(usageError)
		assert.True(t, ok, "%s: expected usage error, got %T: %v", sub, err, err)
		assert.Contains(t, err.Error(), "unknown flag", sub)
		assert.Contains(t, err.Error(), "Usage:", sub)
	}
}
