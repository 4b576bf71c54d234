package providers

import (
	"context"
	"fmt"
	"sync"

	ierrors "github.com/airsstack/mcp-runtime/internal/errors"
	"github.com/airsstack/mcp-runtime/internal/mcpproto"
)

// Prompt instantiates a named prompt template with caller-supplied
// arguments, mirroring the Tool/Resource provider shape.
type Prompt interface {
	Render(ctx context.Context, arguments map[string]string) (*mcpproto.PromptsGetResult, error)
	Definition() mcpproto.PromptDefinition
}

// PromptRegistry is a thread-safe, in-memory PromptProvider. The
// teacher repo has no prompts capability to generalize from; this
// follows the same registration/pagination shape as ToolRegistry and
// ResourceRegistry for consistency with the rest of the provider set.
type PromptRegistry struct {
	mu      sync.RWMutex
	prompts map[string]Prompt
}

// NewPromptRegistry constructs an empty PromptRegistry.
func NewPromptRegistry() *PromptRegistry {
	return &PromptRegistry{prompts: make(map[string]Prompt)}
}

// RegisterPrompt registers prompt under name.
func (r *PromptRegistry) RegisterPrompt(name string, prompt Prompt) error {
	if name == "" {
		return ierrors.New("providers", "RegisterPrompt", ierrors.ErrBadRequest, fmt.Errorf("prompt name cannot be empty"))
	}
	if prompt == nil {
		return ierrors.New("providers", "RegisterPrompt", ierrors.ErrBadRequest, fmt.Errorf("prompt cannot be nil"))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.prompts[name]; exists {
		return ierrors.New("providers", "RegisterPrompt", ierrors.ErrBadRequest, ErrPromptAlreadyRegistered).WithContext("prompt_name", name)
	}
	r.prompts[name] = prompt
	return nil
}

// ListPrompts implements providers.PromptProvider.
func (r *PromptRegistry) ListPrompts(ctx context.Context, cursor string) ([]mcpproto.PromptDefinition, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.prompts))
	for name := range r.prompts {
		names = append(names, name)
	}
	page, next, ok := paginate(names, cursor)
	if !ok {
		return nil, "", ierrors.New("providers", "ListPrompts", ierrors.ErrBadRequest, ErrInvalidCursor)
	}

	defs := make([]mcpproto.PromptDefinition, 0, len(page))
	for _, name := range page {
		defs = append(defs, r.prompts[name].Definition())
	}
	return defs, next, nil
}

// GetPrompt implements providers.PromptProvider.
func (r *PromptRegistry) GetPrompt(ctx context.Context, name string, arguments map[string]string) (*mcpproto.PromptsGetResult, error) {
	r.mu.RLock()
	prompt, exists := r.prompts[name]
	r.mu.RUnlock()

	if !exists {
		return nil, ierrors.New("providers", "GetPrompt", ierrors.ErrNotFound, ErrPromptNotFound).WithContext("prompt_name", name)
	}
	result, err := prompt.Render(ctx, arguments)
	if err != nil {
		return nil, ierrors.New("providers", "GetPrompt", ierrors.ErrInternal, fmt.Errorf("prompt render failed: %w", err)).WithContext("prompt_name", name)
	}
	return result, nil
}
