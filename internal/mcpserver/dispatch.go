package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/airsstack/mcp-runtime/internal/jsonrpc"
	"github.com/airsstack/mcp-runtime/internal/mcpproto"
	"github.com/airsstack/mcp-runtime/internal/session"
)

// dispatch routes msg to the matching per-method handler. It is only
// ever called after initialization-order and authorization checks have
// passed, so every branch here may assume the session is either being
// initialized right now or is already Active.
func (h *Handler[T, TP, RP, PP, LP, AZ]) dispatch(ctx context.Context, sess *session.Session, msg *jsonrpc.Message) (*jsonrpc.Message, error) {
	switch msg.Method {
	case mcpproto.MethodInitialize:
		return h.handleInitialize(ctx, sess, msg)
	case mcpproto.MethodInitialized:
		sess.SetState(session.StateActive)
		return nil, nil
	case mcpproto.MethodToolsList:
		return h.handleToolsList(ctx, msg)
	case mcpproto.MethodToolsCall:
		return h.handleToolsCall(ctx, msg)
	case mcpproto.MethodResourcesList:
		return h.handleResourcesList(ctx, msg)
	case mcpproto.MethodResourceTemplatesList:
		return h.handleResourceTemplatesList(ctx, msg)
	case mcpproto.MethodResourcesRead:
		return h.handleResourcesRead(ctx, msg)
	case mcpproto.MethodResourcesSubscribe:
		return h.handleResourcesSubscribe(ctx, sess, msg)
	case mcpproto.MethodResourcesUnsubscribe:
		return h.handleResourcesUnsubscribe(ctx, sess, msg)
	case mcpproto.MethodPromptsList:
		return h.handlePromptsList(ctx, msg)
	case mcpproto.MethodPromptsGet:
		return h.handlePromptsGet(ctx, msg)
	case mcpproto.MethodLoggingSetLevel:
		return h.handleLoggingSetLevel(ctx, msg)
	default:
		return h.errorOrNil(msg, jsonrpc.CodeMethodNotFound, "method not found: "+msg.Method, nil), nil
	}
}

// providerError turns a provider error into the appropriate response:
// internal errors get a correlation id logged via internalError, while
// client-fault errors (bad request / not found) become InvalidParams
// carrying the classification in data.reason.
func (h *Handler[T, TP, RP, PP, LP, AZ]) providerError(ctx context.Context, msg *jsonrpc.Message, op string, err error) *jsonrpc.Message {
	code, reason := mapProviderError(err)
	if code == jsonrpc.CodeInternalError {
		return h.internalError(ctx, msg, op, err)
	}
	return h.errorOrNil(msg, code, op+" failed: "+err.Error(), map[string]any{"reason": reason})
}

// result marshals v into a successful response for msg.
func (h *Handler[T, TP, RP, PP, LP, AZ]) result(msg *jsonrpc.Message, v any) *jsonrpc.Message {
	raw, err := json.Marshal(v)
	if err != nil {
		return h.internalError(context.Background(), msg, "marshal result", err)
	}
	return jsonrpc.NewResult(msg.ID, raw)
}

// decodeParams unmarshals msg.Params into dst and validates it via the
// struct tags mcpproto attaches to its Params types (spec.md §4.9:
// params are validated BEFORE the provider call, failures produce
// InvalidParams). Returns a non-nil error Message on failure, or nil if
// decoding succeeded and dispatch should continue.
func (h *Handler[T, TP, RP, PP, LP, AZ]) decodeParams(msg *jsonrpc.Message, dst any) *jsonrpc.Message {
	if len(msg.Params) > 0 {
		if err := json.Unmarshal(msg.Params, dst); err != nil {
			return h.errorOrNil(msg, jsonrpc.CodeInvalidParams, "invalid params: "+err.Error(), nil)
		}
	}
	if err := h.validate.Struct(dst); err != nil {
		return h.errorOrNil(msg, jsonrpc.CodeInvalidParams, "invalid params: "+err.Error(), nil)
	}
	return nil
}

func (h *Handler[T, TP, RP, PP, LP, AZ]) handleInitialize(ctx context.Context, sess *session.Session, msg *jsonrpc.Message) (*jsonrpc.Message, error) {
	var params mcpproto.InitializeParams
	if len(msg.Params) > 0 {
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			return h.errorOrNil(msg, jsonrpc.CodeInvalidParams, "invalid initialize params: "+err.Error(), nil), nil
		}
	}

	sess.SetState(session.StateAwaitingInitialized)

	result := mcpproto.InitializeResult{
		ProtocolVersion: mcpproto.ProtocolVersion,
		ServerInfo:      mcpproto.ServerInfoResponse{Name: h.info.Name, Version: h.info.Version},
		Capabilities:    h.Capabilities(),
		Instructions:    h.info.Instructions,
	}
	return h.result(msg, result), nil
}

func (h *Handler[T, TP, RP, PP, LP, AZ]) handleToolsList(ctx context.Context, msg *jsonrpc.Message) (*jsonrpc.Message, error) {
	if !h.toolsEnabled() {
		return h.errorOrNil(msg, jsonrpc.CodeMethodNotFound, "tools capability not enabled", nil), nil
	}
	var params mcpproto.ToolsListParams
	if errMsg := h.decodeParams(msg, &params); errMsg != nil {
		return errMsg, nil
	}

	tools, next, err := safeListCall(func() ([]mcpproto.ToolDefinition, string, error) {
		return h.tools.ListTools(ctx, params.Cursor)
	})
	if err != nil {
		return h.providerError(ctx, msg, "tools/list", err), nil
	}
	return h.result(msg, mcpproto.ToolsListResult{Tools: tools, NextCursor: next}), nil
}

func (h *Handler[T, TP, RP, PP, LP, AZ]) handleToolsCall(ctx context.Context, msg *jsonrpc.Message) (*jsonrpc.Message, error) {
	if !h.toolsEnabled() {
		return h.errorOrNil(msg, jsonrpc.CodeMethodNotFound, "tools capability not enabled", nil), nil
	}
	var params mcpproto.ToolsCallParams
	if errMsg := h.decodeParams(msg, &params); errMsg != nil {
		return errMsg, nil
	}

	result, err := safeCall(func() (*mcpproto.ToolsCallResult, error) {
		return h.tools.CallTool(ctx, params.Name, params.Arguments)
	})
	if err != nil {
		return h.providerError(ctx, msg, "tools/call", err), nil
	}
	return h.result(msg, result), nil
}

func (h *Handler[T, TP, RP, PP, LP, AZ]) handleResourcesList(ctx context.Context, msg *jsonrpc.Message) (*jsonrpc.Message, error) {
	if !h.resourcesEnabled() {
		return h.errorOrNil(msg, jsonrpc.CodeMethodNotFound, "resources capability not enabled", nil), nil
	}
	var params mcpproto.ResourcesListParams
	if errMsg := h.decodeParams(msg, &params); errMsg != nil {
		return errMsg, nil
	}

	resources, next, err := safeListCall(func() ([]mcpproto.ResourceDefinition, string, error) {
		return h.resources.ListResources(ctx, params.Cursor)
	})
	if err != nil {
		return h.providerError(ctx, msg, "resources/list", err), nil
	}
	return h.result(msg, mcpproto.ResourcesListResult{Resources: resources, NextCursor: next}), nil
}

func (h *Handler[T, TP, RP, PP, LP, AZ]) handleResourceTemplatesList(ctx context.Context, msg *jsonrpc.Message) (*jsonrpc.Message, error) {
	if !h.resourcesEnabled() {
		return h.errorOrNil(msg, jsonrpc.CodeMethodNotFound, "resources capability not enabled", nil), nil
	}
	templates, err := safeCall(func() ([]mcpproto.ResourceTemplate, error) {
		return h.resources.ListResourceTemplates(ctx)
	})
	if err != nil {
		return h.internalError(ctx, msg, "resources/templates/list", err), nil
	}
	return h.result(msg, mcpproto.ResourceTemplatesListResult{ResourceTemplates: templates}), nil
}

func (h *Handler[T, TP, RP, PP, LP, AZ]) handleResourcesRead(ctx context.Context, msg *jsonrpc.Message) (*jsonrpc.Message, error) {
	if !h.resourcesEnabled() {
		return h.errorOrNil(msg, jsonrpc.CodeMethodNotFound, "resources capability not enabled", nil), nil
	}
	var params mcpproto.ResourcesReadParams
	if errMsg := h.decodeParams(msg, &params); errMsg != nil {
		return errMsg, nil
	}

	result, err := safeCall(func() (*mcpproto.ResourcesReadResult, error) {
		return h.resources.ReadResource(ctx, params.URI)
	})
	if err != nil {
		return h.providerError(ctx, msg, "resources/read", err), nil
	}
	return h.result(msg, result), nil
}

func (h *Handler[T, TP, RP, PP, LP, AZ]) handleResourcesSubscribe(ctx context.Context, sess *session.Session, msg *jsonrpc.Message) (*jsonrpc.Message, error) {
	if !h.resourcesEnabled() {
		return h.errorOrNil(msg, jsonrpc.CodeMethodNotFound, "resources capability not enabled", nil), nil
	}
	var params mcpproto.ResourcesSubscribeParams
	if errMsg := h.decodeParams(msg, &params); errMsg != nil {
		return errMsg, nil
	}
	if !h.resources.Subscribable(params.URI) {
		return h.errorOrNil(msg, jsonrpc.CodeInvalidParams, "resource is not subscribable", map[string]any{"uri": params.URI}), nil
	}
	if h.hub != nil {
		h.hub.Subscribe(sess.ID(), params.URI)
	}
	return h.result(msg, struct{}{}), nil
}

func (h *Handler[T, TP, RP, PP, LP, AZ]) handleResourcesUnsubscribe(ctx context.Context, sess *session.Session, msg *jsonrpc.Message) (*jsonrpc.Message, error) {
	if !h.resourcesEnabled() {
		return h.errorOrNil(msg, jsonrpc.CodeMethodNotFound, "resources capability not enabled", nil), nil
	}
	var params mcpproto.ResourcesSubscribeParams
	if errMsg := h.decodeParams(msg, &params); errMsg != nil {
		return errMsg, nil
	}
	if h.hub != nil {
		h.hub.Unsubscribe(sess.ID(), params.URI)
	}
	return h.result(msg, struct{}{}), nil
}

func (h *Handler[T, TP, RP, PP, LP, AZ]) handlePromptsList(ctx context.Context, msg *jsonrpc.Message) (*jsonrpc.Message, error) {
	if !h.promptsEnabled() {
		return h.errorOrNil(msg, jsonrpc.CodeMethodNotFound, "prompts capability not enabled", nil), nil
	}
	var params mcpproto.PromptsListParams
	if errMsg := h.decodeParams(msg, &params); errMsg != nil {
		return errMsg, nil
	}

	prompts, next, err := safeListCall(func() ([]mcpproto.PromptDefinition, string, error) {
		return h.prompts.ListPrompts(ctx, params.Cursor)
	})
	if err != nil {
		return h.providerError(ctx, msg, "prompts/list", err), nil
	}
	return h.result(msg, mcpproto.PromptsListResult{Prompts: prompts, NextCursor: next}), nil
}

func (h *Handler[T, TP, RP, PP, LP, AZ]) handlePromptsGet(ctx context.Context, msg *jsonrpc.Message) (*jsonrpc.Message, error) {
	if !h.promptsEnabled() {
		return h.errorOrNil(msg, jsonrpc.CodeMethodNotFound, "prompts capability not enabled", nil), nil
	}
	var params mcpproto.PromptsGetParams
	if errMsg := h.decodeParams(msg, &params); errMsg != nil {
		return errMsg, nil
	}

	result, err := safeCall(func() (*mcpproto.PromptsGetResult, error) {
		return h.prompts.GetPrompt(ctx, params.Name, params.Arguments)
	})
	if err != nil {
		return h.providerError(ctx, msg, "prompts/get", err), nil
	}
	return h.result(msg, result), nil
}

func (h *Handler[T, TP, RP, PP, LP, AZ]) handleLoggingSetLevel(ctx context.Context, msg *jsonrpc.Message) (*jsonrpc.Message, error) {
	if !h.loggingEnabled() {
		return h.errorOrNil(msg, jsonrpc.CodeMethodNotFound, "logging capability not enabled", nil), nil
	}
	var params mcpproto.LoggingSetLevelParams
	if errMsg := h.decodeParams(msg, &params); errMsg != nil {
		return errMsg, nil
	}

	err := safeCallErr(func() error { return h.logging.SetLevel(ctx, params.Level) })
	if err != nil {
		return h.providerError(ctx, msg, "logging/setLevel", err), nil
	}
	return h.result(msg, struct{}{}), nil
}

// safeListCall is safeCall specialized for the (items, nextCursor, err)
// shape every ListX provider method returns.
func safeListCall[E any](fn func() ([]E, string, error)) (items []E, next string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errPanic(r)
			items, next = nil, ""
		}
	}()
	return fn()
}

// safeCallErr is safeCall specialized for provider methods returning
// only an error.
func safeCallErr(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errPanic(r)
		}
	}()
	return fn()
}
