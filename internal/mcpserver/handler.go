// Package mcpserver implements the MCP request handler: the dispatch
// table that routes a parsed JSON-RPC message to the initialize
// handshake, a capability provider, or a session-notification method,
// the way the teacher's internal/mcp.handler routed "initialize",
// "tools/list", "tools/call", "resources/list", and "resources/read" to
// private per-method functions behind a single HandleRequest switch.
// This package generalizes that fixed two-provider dispatch table to
// the full MCP method surface (resources/templates/list, subscribe/
// unsubscribe, prompts, logging/setLevel) and to the per-session
// initialization state machine, while keeping the teacher's shape: one
// struct field per capability, one private method per wire method, and
// errors built by a single helper rather than constructed ad hoc at
// each call site.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/airsstack/mcp-runtime/internal/authn"
	"github.com/airsstack/mcp-runtime/internal/authz"
	ierrors "github.com/airsstack/mcp-runtime/internal/errors"
	"github.com/airsstack/mcp-runtime/internal/jsonrpc"
	"github.com/airsstack/mcp-runtime/internal/mcpproto"
	"github.com/airsstack/mcp-runtime/internal/notify"
	"github.com/airsstack/mcp-runtime/internal/obsmetrics"
	"github.com/airsstack/mcp-runtime/internal/providers"
	"github.com/airsstack/mcp-runtime/internal/session"
	"github.com/airsstack/mcp-runtime/internal/transport"
)

// ServerInfo identifies this server during "initialize", mirroring the
// teacher's wire.Config{ServerName, ServerVersion} pair.
type ServerInfo struct {
	Name         string
	Version      string
	Instructions string
}

// Handler dispatches JSON-RPC messages to capability providers for one
// logical server, enforcing the per-session initialization order and an
// authorization policy before any provider is reached. It is generic
// over the provider set (TP/RP/PP/LP) so a server built without, say, a
// prompt provider instantiates PP as the bare providers.PromptProvider
// interface with a nil value: "prompts" is then neither advertised nor
// dispatchable, and the unused branch costs nothing at runtime.
//
// The authorization context type is fixed to *authn.AuthContext rather
// than left as a free type parameter: every built-in authn.Strategy
// (oauth2, apikey, basic) converges on that one result shape, and
// internal/session.Session binds auth as *authn.AuthContext. AZ stays
// generic so a deployment still picks NoAuthorization, ScopeBased, or
// Binary against that context type and the compiler still drops the
// unused policy's code; see DESIGN.md for the reasoning.
//
// T is the transport-specific context carried by transport.MessageContext
// (struct{} for stdio, httptransport.HTTPContext for HTTP) so Handler
// implements transport.MessageHandler[T] for exactly the transport it is
// built for.
type Handler[T any, TP providers.ToolProvider, RP providers.ResourceProvider, PP providers.PromptProvider, LP providers.LoggingProvider, AZ authz.Policy[*authn.AuthContext]] struct {
	info ServerInfo

	tools     TP
	resources RP
	prompts   PP
	logging   LP
	policy    AZ

	sessions *session.Manager
	hub      *notify.Hub
	metrics  *obsmetrics.Metrics
	logger   *slog.Logger

	validate *validator.Validate

	// transportName labels metrics ("http" or "stdio").
	transportName string
}

// New constructs a Handler. sessions and hub must be non-nil; metrics
// and logger may be nil, in which case instrumentation and logging are
// skipped (useful in tests).
func New[T any, TP providers.ToolProvider, RP providers.ResourceProvider, PP providers.PromptProvider, LP providers.LoggingProvider, AZ authz.Policy[*authn.AuthContext]](
	info ServerInfo,
	tools TP, resources RP, prompts PP, logging LP, policy AZ,
	sessions *session.Manager, hub *notify.Hub,
	metrics *obsmetrics.Metrics, logger *slog.Logger,
	transportName string,
) *Handler[T, TP, RP, PP, LP, AZ] {
	if sessions == nil {
		panic("mcpserver: sessions manager cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler[T, TP, RP, PP, LP, AZ]{
		info:          info,
		tools:         tools,
		resources:     resources,
		prompts:       prompts,
		logging:       logging,
		policy:        policy,
		sessions:      sessions,
		hub:           hub,
		metrics:       metrics,
		logger:        logger,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		transportName: transportName,
	}
}

func (h *Handler[T, TP, RP, PP, LP, AZ]) toolsEnabled() bool     { return any(h.tools) != nil }
func (h *Handler[T, TP, RP, PP, LP, AZ]) resourcesEnabled() bool { return any(h.resources) != nil }
func (h *Handler[T, TP, RP, PP, LP, AZ]) promptsEnabled() bool   { return any(h.prompts) != nil }
func (h *Handler[T, TP, RP, PP, LP, AZ]) loggingEnabled() bool   { return any(h.logging) != nil }

// Capabilities reports the advertisement the server builder must embed
// in InitializeResult, computed purely from which providers are
// non-nil, per spec.md's "advertise only capabilities actually
// implemented" rule.
func (h *Handler[T, TP, RP, PP, LP, AZ]) Capabilities() mcpproto.Capabilities {
	var caps mcpproto.Capabilities
	if h.toolsEnabled() {
		caps.Tools = &mcpproto.ToolsCapability{}
	}
	if h.resourcesEnabled() {
		caps.Resources = &mcpproto.ResourcesCapability{Subscribe: true}
	}
	if h.promptsEnabled() {
		caps.Prompts = &mcpproto.PromptsCapability{}
	}
	if h.loggingEnabled() {
		caps.Logging = &mcpproto.LoggingCapability{}
	}
	return caps
}

// HandleMessage implements transport.MessageHandler[T]. It resolves the
// session (minting one on first sight of mc.SessionID), enforces
// initialization order, authorizes the method against the auth context
// already stashed in ctx by the transport's authentication middleware,
// and dispatches to the matching provider. A notification never
// produces a response Message, matching JSON-RPC 2.0 semantics.
func (h *Handler[T, TP, RP, PP, LP, AZ]) HandleMessage(ctx context.Context, mc transport.MessageContext[T]) (*jsonrpc.Message, error) {
	now := time.Now()
	sess, err := h.sessions.GetOrCreate(mc.SessionID, now)
	if err != nil {
		if h.metrics != nil {
			h.metrics.RecordSessionTableFull()
		}
		return h.errorOrNil(mc.Message, jsonrpc.CodeRateLimited, "session table full", nil),
			&transport.StatusHint{Status: transport.StatusServiceUnavailable, RetryAfter: "1"}
	}
	sess.Touch(now)
	if h.metrics != nil {
		h.metrics.SetSessionTableSize(h.sessions.Len())
	}

	msg := mc.Message
	kind := jsonrpc.Classify(msg)
	if kind == jsonrpc.KindInvalid {
		return h.errorOrNil(msg, jsonrpc.CodeInvalidRequest, "invalid request", nil), nil
	}

	if authVal, ok := transport.AuthFromContext(ctx); ok {
		if ac, ok := authVal.(*authn.AuthContext); ok && ac != nil {
			sess.BindAuth(ac)
		}
	}

	method := msg.Method

	// Initialization order enforcement (spec.md §4.9, §8 invariant 4).
	if method != mcpproto.MethodInitialize && method != mcpproto.MethodInitialized {
		if sess.State() != session.StateActive {
			return h.errorOrNil(msg, jsonrpc.CodeNotInitialized, "server not initialized", map[string]any{"reason": "not_initialized"}), nil
		}
	}
	if method == mcpproto.MethodInitialize && sess.State() != session.StateUninitialized {
		return h.errorOrNil(msg, jsonrpc.CodeNotInitialized, "server already initialized", map[string]any{"reason": "already_initialized"}), nil
	}

	if err := h.policy.Authorize(ctx, sess.Auth(), method); err != nil {
		oe := ierrors.NewOAuthError(ierrors.ErrorCodeInsufficientScope, "method "+method+" requires a scope not granted to this token")
		return h.errorOrNil(msg, jsonrpc.CodeForbidden, "forbidden", map[string]any{"reason": "forbidden", "method": method}),
			&transport.StatusHint{Status: transport.StatusForbidden, WWWAuthenticate: oe.WWWAuthenticate()}
	}

	if h.metrics != nil {
		done := h.metrics.RecordRequestStart(h.transportName)
		defer done()
	}

	resp, handleErr := h.dispatch(ctx, sess, msg)
	if kind == jsonrpc.KindNotification {
		// Notifications never produce response bytes, even on error;
		// log and drop per spec.md §7's propagation policy.
		if handleErr != nil && h.logger != nil {
			h.logger.ErrorContext(ctx, "notification handling failed", "method", method, "error", handleErr)
		}
		return nil, nil
	}
	return resp, nil
}

// HandleError implements transport.MessageHandler[T].
func (h *Handler[T, TP, RP, PP, LP, AZ]) HandleError(ctx context.Context, sessionID string, err error) {
	if h.logger != nil {
		h.logger.ErrorContext(ctx, "transport error", "session_id", sessionID, "error", err)
	}
}

// HandleClose implements transport.MessageHandler[T]. It evicts the
// session table entry for sessionID, since the transport reports this
// exactly once when that session's connection is gone for good.
func (h *Handler[T, TP, RP, PP, LP, AZ]) HandleClose(ctx context.Context, sessionID string) {
	if h.hub != nil {
		h.hub.ForgetSession(sessionID)
	}
	h.sessions.Evict(sessionID)
	if h.metrics != nil {
		h.metrics.SetSessionTableSize(h.sessions.Len())
	}
	if h.logger != nil {
		h.logger.InfoContext(ctx, "session closed", "session_id", sessionID)
	}
}

// errorOrNil builds an error response Message for msg, or nil when msg
// was a notification (notifications never get a response).
func (h *Handler[T, TP, RP, PP, LP, AZ]) errorOrNil(msg *jsonrpc.Message, code int, message string, data any) *jsonrpc.Message {
	if msg == nil || jsonrpc.Classify(msg) == jsonrpc.KindNotification {
		return nil
	}
	var raw json.RawMessage
	if data != nil {
		raw, _ = json.Marshal(data)
	}
	return jsonrpc.NewErrorResponse(msg.ID, code, message, raw)
}

// internalError builds a -32603 response carrying a correlation id for
// log cross-reference, per spec.md §7.
func (h *Handler[T, TP, RP, PP, LP, AZ]) internalError(ctx context.Context, msg *jsonrpc.Message, op string, cause error) *jsonrpc.Message {
	correlationID := uuid.NewString()
	if h.logger != nil {
		h.logger.ErrorContext(ctx, "internal error", "op", op, "correlation_id", correlationID, "error", cause)
	}
	return h.errorOrNil(msg, jsonrpc.CodeInternalError, "internal error", map[string]any{"correlationId": correlationID})
}

// safeCall runs fn with panic recovery, converting a panic into an
// error rather than letting it unwind through the transport, per
// spec.md §4.9 "panic within a provider MUST be caught".
func safeCall[R any](fn func() (R, error)) (result R, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errPanic(r)
		}
	}()
	return fn()
}

func errPanic(r any) error {
	return fmt.Errorf("panic recovered: %v", r)
}

// mapProviderError classifies a provider error into a JSON-RPC code.
// Unknown-name errors (tool/resource/prompt not found) and malformed
// arguments both read as InvalidParams: the client referenced something
// that does not exist or does not match the expected shape, which is a
// request-shape problem from the caller's perspective, not a server
// fault.
func mapProviderError(err error) (code int, reason string) {
	switch {
	case errors.Is(err, ierrors.ErrNotFound):
		return jsonrpc.CodeInvalidParams, "not_found"
	case errors.Is(err, ierrors.ErrBadRequest):
		return jsonrpc.CodeInvalidParams, "bad_request"
	default:
		return jsonrpc.CodeInternalError, "internal"
	}
}
