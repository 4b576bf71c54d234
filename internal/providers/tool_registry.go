package providers

import (
	"context"
	"fmt"
	"sync"

	ierrors "github.com/airsstack/mcp-runtime/internal/errors"
	"github.com/airsstack/mcp-runtime/internal/mcpproto"
)

// Tool is an executable MCP tool, matching the teacher's Tool interface
// shape (Execute + Definition).
type Tool interface {
	Execute(ctx context.Context, args map[string]any) (*mcpproto.ToolsCallResult, error)
	Definition() mcpproto.ToolDefinition
}

// ToolRegistry is a thread-safe, in-memory ToolProvider, generalizing
// the teacher's toolRegistry with cursor-based pagination.
type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewToolRegistry constructs an empty ToolRegistry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]Tool)}
}

// RegisterTool registers tool under name.
func (r *ToolRegistry) RegisterTool(name string, tool Tool) error {
	if name == "" {
		return ierrors.New("providers", "RegisterTool", ierrors.ErrBadRequest, fmt.Errorf("tool name cannot be empty"))
	}
	if tool == nil {
		return ierrors.New("providers", "RegisterTool", ierrors.ErrBadRequest, fmt.Errorf("tool cannot be nil"))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; exists {
		return ierrors.New("providers", "RegisterTool", ierrors.ErrBadRequest, ErrToolAlreadyRegistered).WithContext("tool_name", name)
	}
	r.tools[name] = tool
	return nil
}

// ListTools implements providers.ToolProvider.
func (r *ToolRegistry) ListTools(ctx context.Context, cursor string) ([]mcpproto.ToolDefinition, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	page, next, ok := paginate(names, cursor)
	if !ok {
		return nil, "", ierrors.New("providers", "ListTools", ierrors.ErrBadRequest, ErrInvalidCursor)
	}

	defs := make([]mcpproto.ToolDefinition, 0, len(page))
	for _, name := range page {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs, next, nil
}

// CallTool implements providers.ToolProvider.
func (r *ToolRegistry) CallTool(ctx context.Context, name string, arguments map[string]any) (*mcpproto.ToolsCallResult, error) {
	r.mu.RLock()
	tool, exists := r.tools[name]
	r.mu.RUnlock()

	if !exists {
		return nil, ierrors.New("providers", "CallTool", ierrors.ErrNotFound, ErrToolNotFound).WithContext("tool_name", name)
	}
	result, err := tool.Execute(ctx, arguments)
	if err != nil {
		return nil, ierrors.New("providers", "CallTool", ierrors.ErrInternal, fmt.Errorf("tool execution failed: %w", err)).WithContext("tool_name", name)
	}
	return result, nil
}
