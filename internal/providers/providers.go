// Package providers defines the capability provider interfaces MCP
// servers implement to expose tools, resources, prompts, and log-level
// control, generalizing the teacher's ToolRegistry/ResourceRegistry
// (interface-based, single-capability) into the full provider surface
// SPEC_FULL.md names, with cursor-based pagination and resource
// subscribe/unsubscribe added.
package providers

import (
	"context"

	"github.com/airsstack/mcp-runtime/internal/mcpproto"
)

// ToolProvider executes named tools and advertises their schemas.
type ToolProvider interface {
	// ListTools returns a page of tool definitions starting after
	// cursor (empty cursor means "from the start").
	ListTools(ctx context.Context, cursor string) (tools []mcpproto.ToolDefinition, nextCursor string, err error)

	// CallTool invokes the named tool with the given arguments.
	CallTool(ctx context.Context, name string, arguments map[string]any) (*mcpproto.ToolsCallResult, error)
}

// ResourceProvider serves static or computed resource content and
// advertises templates for dynamic resources.
type ResourceProvider interface {
	// ListResources returns a page of resource definitions.
	ListResources(ctx context.Context, cursor string) (resources []mcpproto.ResourceDefinition, nextCursor string, err error)

	// ListResourceTemplates returns all registered URI templates.
	ListResourceTemplates(ctx context.Context) ([]mcpproto.ResourceTemplate, error)

	// ReadResource reads the current content of the resource at uri.
	ReadResource(ctx context.Context, uri string) (*mcpproto.ResourcesReadResult, error)

	// Subscribable reports whether this provider supports
	// subscribe/unsubscribe notifications for the given URI.
	Subscribable(uri string) bool
}

// PromptProvider instantiates named prompt templates.
type PromptProvider interface {
	// ListPrompts returns a page of prompt definitions.
	ListPrompts(ctx context.Context, cursor string) (prompts []mcpproto.PromptDefinition, nextCursor string, err error)

	// GetPrompt instantiates the named prompt with the given arguments.
	GetPrompt(ctx context.Context, name string, arguments map[string]string) (*mcpproto.PromptsGetResult, error)
}

// LoggingProvider adjusts the server's minimum emitted log level at
// runtime in response to "logging/setLevel".
type LoggingProvider interface {
	SetLevel(ctx context.Context, level string) error
}
