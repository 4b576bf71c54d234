// Package mcpproto defines the MCP-specific request/response payloads and
// capability descriptors carried inside JSON-RPC params/result bodies.
// This package owns no transport or dispatch logic; internal/mcpserver
// unmarshals into these types after the jsonrpc layer has classified a
// message as a request or notification.
package mcpproto

// ProtocolVersion is the MCP protocol version this runtime negotiates.
const ProtocolVersion = "2025-06-18"

// InitializeParams are the parameters of the "initialize" method.
type InitializeParams struct {
	ProtocolVersion string             `json:"protocolVersion"`
	ClientInfo      ClientInfo         `json:"clientInfo"`
	Capabilities    ClientCapabilities `json:"capabilities,omitempty"`
}

// ClientInfo identifies the connecting MCP client.
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ClientCapabilities describes what the client supports.
type ClientCapabilities struct {
	Roots    *RootsCapability    `json:"roots,omitempty"`
	Sampling *SamplingCapability `json:"sampling,omitempty"`
}

// RootsCapability indicates workspace-roots support.
type RootsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// SamplingCapability indicates sampling support.
type SamplingCapability struct{}

// InitializeResult is the result of "initialize".
type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	ServerInfo      ServerInfoResponse `json:"serverInfo"`
	Capabilities    Capabilities       `json:"capabilities"`
	Instructions    string             `json:"instructions,omitempty"`
}

// ServerInfoResponse identifies the server.
type ServerInfoResponse struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Capabilities describes what the server supports. A nil field means the
// corresponding capability is not advertised; the server builder MUST
// only set fields for capabilities with a registered provider.
type Capabilities struct {
	Tools     *ToolsCapability     `json:"tools,omitempty"`
	Resources *ResourcesCapability `json:"resources,omitempty"`
	Prompts   *PromptsCapability   `json:"prompts,omitempty"`
	Logging   *LoggingCapability   `json:"logging,omitempty"`
}

type ToolsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

type ResourcesCapability struct {
	Subscribe   bool `json:"subscribe,omitempty"`
	ListChanged bool `json:"listChanged,omitempty"`
}

type PromptsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

type LoggingCapability struct{}

// ToolsListParams supports cursor-based pagination.
type ToolsListParams struct {
	Cursor string `json:"cursor,omitempty"`
}

// ToolsListResult is the result of "tools/list".
type ToolsListResult struct {
	Tools      []ToolDefinition `json:"tools"`
	NextCursor string           `json:"nextCursor,omitempty"`
}

// ToolDefinition describes a tool for client discovery.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// ToolsCallParams are the parameters of "tools/call".
type ToolsCallParams struct {
	Name      string         `json:"name" validate:"required"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// ToolsCallResult is the result of "tools/call".
type ToolsCallResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// Content is one element of a tool result's content array.
type Content struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Data     string `json:"data,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	URI      string `json:"uri,omitempty"`
}

// ResourcesListParams supports cursor-based pagination.
type ResourcesListParams struct {
	Cursor string `json:"cursor,omitempty"`
}

// ResourcesListResult is the result of "resources/list".
type ResourcesListResult struct {
	Resources  []ResourceDefinition `json:"resources"`
	NextCursor string               `json:"nextCursor,omitempty"`
}

// ResourceDefinition describes a resource for client discovery.
type ResourceDefinition struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

// ResourceTemplatesListResult is the result of "resources/templates/list".
type ResourceTemplatesListResult struct {
	ResourceTemplates []ResourceTemplate `json:"resourceTemplates"`
}

// ResourceTemplate describes a URI template for dynamic resources.
type ResourceTemplate struct {
	URITemplate string `json:"uriTemplate"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

// ResourcesReadParams are the parameters of "resources/read".
type ResourcesReadParams struct {
	URI string `json:"uri" validate:"required"`
}

// ResourcesReadResult is the result of "resources/read".
type ResourcesReadResult struct {
	Contents []ResourceContent `json:"contents"`
}

// ResourceContent is the content of a single read resource.
type ResourceContent struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitempty"`
	Text     string `json:"text,omitempty"`
	Blob     string `json:"blob,omitempty"`
}

// ResourcesSubscribeParams are the parameters of "resources/subscribe" and
// "resources/unsubscribe".
type ResourcesSubscribeParams struct {
	URI string `json:"uri" validate:"required"`
}

// ResourceUpdatedNotificationParams is the payload of the server-initiated
// "notifications/resources/updated" notification.
type ResourceUpdatedNotificationParams struct {
	URI string `json:"uri"`
}

// PromptsListParams supports cursor-based pagination.
type PromptsListParams struct {
	Cursor string `json:"cursor,omitempty"`
}

// PromptsListResult is the result of "prompts/list".
type PromptsListResult struct {
	Prompts    []PromptDefinition `json:"prompts"`
	NextCursor string             `json:"nextCursor,omitempty"`
}

// PromptDefinition describes a prompt for client discovery.
type PromptDefinition struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Arguments   []PromptArgument `json:"arguments,omitempty"`
}

// PromptArgument describes a single prompt argument.
type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// PromptsGetParams are the parameters of "prompts/get".
type PromptsGetParams struct {
	Name      string            `json:"name" validate:"required"`
	Arguments map[string]string `json:"arguments,omitempty"`
}

// PromptsGetResult is the result of "prompts/get".
type PromptsGetResult struct {
	Description string          `json:"description,omitempty"`
	Messages    []PromptMessage `json:"messages"`
}

// PromptMessage is one message in an instantiated prompt.
type PromptMessage struct {
	Role    string  `json:"role"`
	Content Content `json:"content"`
}

// LoggingSetLevelParams are the parameters of "logging/setLevel".
type LoggingSetLevelParams struct {
	Level string `json:"level" validate:"required,oneof=debug info notice warning error critical alert emergency"`
}

// Method name constants, used both for dispatch and as authorization
// policy keys. The method string passed to authorization MUST be one of
// these values, extracted from the JSON-RPC payload's "method" field,
// never from any transport-level route.
const (
	MethodInitialize                 = "initialize"
	MethodInitialized                = "notifications/initialized"
	MethodToolsList                  = "tools/list"
	MethodToolsCall                  = "tools/call"
	MethodResourcesList              = "resources/list"
	MethodResourceTemplatesList      = "resources/templates/list"
	MethodResourcesRead              = "resources/read"
	MethodResourcesSubscribe         = "resources/subscribe"
	MethodResourcesUnsubscribe       = "resources/unsubscribe"
	MethodPromptsList                = "prompts/list"
	MethodPromptsGet                 = "prompts/get"
	MethodLoggingSetLevel            = "logging/setLevel"
	NotificationResourcesUpdated     = "notifications/resources/updated"
	NotificationToolsListChanged     = "notifications/tools/list_changed"
	NotificationResourcesListChanged = "notifications/resources/list_changed"
	NotificationPromptsListChanged   = "notifications/prompts/list_changed"
)
