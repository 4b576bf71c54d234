package providers_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airsstack/mcp-runtime/internal/mcpproto"
	"github.com/airsstack/mcp-runtime/internal/providers"
)

type stubPrompt struct {
	def    mcpproto.PromptDefinition
	result *mcpproto.PromptsGetResult
}

func (s stubPrompt) Render(ctx context.Context, arguments map[string]string) (*mcpproto.PromptsGetResult, error) {
	return s.result, nil
}

func (s stubPrompt) Definition() mcpproto.PromptDefinition { return s.def }

func TestPromptRegistry_RegisterAndGet(t *testing.T) {
	r := providers.NewPromptRegistry()
	prompt := stubPrompt{
		def:    mcpproto.PromptDefinition{Name: "greet"},
		result: &mcpproto.PromptsGetResult{},
	}
	require.NoError(t, r.RegisterPrompt("greet", prompt))

	got, err := r.GetPrompt(context.Background(), "greet", map[string]string{"name": "Ada"})
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestPromptRegistry_DuplicateRegistrationRejected(t *testing.T) {
	r := providers.NewPromptRegistry()
	prompt := stubPrompt{def: mcpproto.PromptDefinition{Name: "greet"}}
	require.NoError(t, r.RegisterPrompt("greet", prompt))

	err := r.RegisterPrompt("greet", prompt)
	require.Error(t, err)
	assert.ErrorIs(t, err, providers.ErrPromptAlreadyRegistered)
}

func TestPromptRegistry_GetUnknownPrompt(t *testing.T) {
	r := providers.NewPromptRegistry()
	_, err := r.GetPrompt(context.Background(), "missing", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, providers.ErrPromptNotFound)
}

func TestPromptRegistry_ListPrompts(t *testing.T) {
	r := providers.NewPromptRegistry()
	require.NoError(t, r.RegisterPrompt("a", stubPrompt{def: mcpproto.PromptDefinition{Name: "a"}}))
	require.NoError(t, r.RegisterPrompt("b", stubPrompt{def: mcpproto.PromptDefinition{Name: "b"}}))

	defs, next, err := r.ListPrompts(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, defs, 2)
	assert.Empty(t, next)
}
