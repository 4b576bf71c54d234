package providers_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airsstack/mcp-runtime/internal/providers"
)

func TestLogLevelRegistry_RejectsUnknownInitialLevel(t *testing.T) {
	_, err := providers.NewLogLevelRegistry("bogus")
	require.Error(t, err)
}

func TestLogLevelRegistry_SetLevelFiltersBelowThreshold(t *testing.T) {
	r, err := providers.NewLogLevelRegistry("info")
	require.NoError(t, err)

	assert.False(t, r.Enabled("debug"))
	assert.True(t, r.Enabled("info"))
	assert.True(t, r.Enabled("error"))

	require.NoError(t, r.SetLevel(context.Background(), "error"))
	assert.False(t, r.Enabled("warning"))
	assert.True(t, r.Enabled("error"))
	assert.True(t, r.Enabled("emergency"))
}

func TestLogLevelRegistry_SetLevelRejectsUnknown(t *testing.T) {
	r, err := providers.NewLogLevelRegistry("info")
	require.NoError(t, err)

	err = r.SetLevel(context.Background(), "not-a-level")
	require.Error(t, err)
}
