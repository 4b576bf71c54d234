// Package httptransport implements transport.Transport[HTTPContext]: the
// MCP-aware JSON-RPC request pipeline bound onto an internal/httpengine
// Engine. It owns credential extraction, session routing via the
// Mcp-Session-Id header, payload-size and concurrency limiting, and
// fan-out of server-initiated notifications into open SSE streams. A
// POST is always answered with an immediate JSON body and is never
// upgraded to an SSE stream; SSE is served only on GET. Generalizing
// the teacher's transport/internal/handlers.mcpHandler (one fixed
// unauthenticated JSON-RPC endpoint) to the full multi-session,
// multi-auth-strategy, streamable surface spec.md §4.7/§4.8 describe.
package httptransport

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/airsstack/mcp-runtime/internal/authn"
	ierrors "github.com/airsstack/mcp-runtime/internal/errors"
	"github.com/airsstack/mcp-runtime/internal/httpengine"
	"github.com/airsstack/mcp-runtime/internal/jsonrpc"
	"github.com/airsstack/mcp-runtime/internal/notify"
	"github.com/airsstack/mcp-runtime/internal/obsmetrics"
	"github.com/airsstack/mcp-runtime/internal/transport"
)

// SessionIDHeader carries the session id a client must echo back on every
// request after the first, per spec.md §4.8.
const SessionIDHeader = "Mcp-Session-Id"

// LastEventIDHeader is the SSE resumption cursor a client sends on
// reconnect, per the SSE spec and spec.md §4.8's replay requirement.
const LastEventIDHeader = "Last-Event-ID"

// HTTPContext is the transport-specific payload carried alongside every
// MessageContext[HTTPContext]: the peer metadata spec.md §4.7 step 4
// names, captured once per request.
type HTTPContext struct {
	RemoteAddr string
	UserAgent  string
}

// Config configures a Transport.
type Config struct {
	Addr            string
	BaseURL         string
	MaxPayloadBytes int64
	MaxConcurrent   int
	SSEReplaySize   int
	RequireAuth     bool
	MCPPath         string

	Engine  httpengine.Engine
	Auth    *authn.Manager
	Hub     *notify.Hub
	Metrics *obsmetrics.Metrics
	Logger  *slog.Logger
}

// Transport implements transport.Transport[HTTPContext] over an
// internal/httpengine Engine.
type Transport struct {
	engine  httpengine.Engine
	auth    *authn.Manager
	hub     *notify.Hub
	metrics *obsmetrics.Metrics
	logger  *slog.Logger

	addr            string
	mcpPath         string
	requireAuth     bool
	maxPayloadBytes int64
	sseReplaySize   int

	mu      sync.Mutex
	state   transport.State
	handler transport.MessageHandler[HTTPContext]

	sem chan struct{}

	streamsMu      sync.Mutex
	streams        map[string]*replayBuffer
	closedSessions map[string]struct{}
}

// New constructs a Transport bound to cfg.Engine. Start registers routes
// on the engine, binds it, and serves; Close shuts the engine down.
func New(cfg Config) *Transport {
	if cfg.Engine == nil {
		panic("httptransport: Config.Engine cannot be nil")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 64
	}
	mcpPath := cfg.MCPPath
	if mcpPath == "" {
		mcpPath = "/mcp"
	}
	replaySize := cfg.SSEReplaySize
	if replaySize <= 0 {
		replaySize = 1000
	}
	return &Transport{
		engine:          cfg.Engine,
		auth:            cfg.Auth,
		hub:             cfg.Hub,
		metrics:         cfg.Metrics,
		logger:          logger,
		addr:            cfg.Addr,
		mcpPath:         mcpPath,
		requireAuth:     cfg.RequireAuth,
		maxPayloadBytes: cfg.MaxPayloadBytes,
		sseReplaySize:   replaySize,
		state:           transport.StateConstructed,
		sem:             make(chan struct{}, maxConcurrent),
		streams:         make(map[string]*replayBuffer),
		closedSessions:  make(map[string]struct{}),
	}
}

// State implements transport.Transport.
func (t *Transport) State() transport.State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Start registers the MCP endpoint and health check on the engine, binds
// and serves, and blocks until ctx is cancelled or Close is called.
func (t *Transport) Start(ctx context.Context, handler transport.MessageHandler[HTTPContext]) error {
	t.mu.Lock()
	if t.state != transport.StateConstructed {
		t.mu.Unlock()
		return transport.ErrAlreadyStarted
	}
	t.state = transport.StateStarted
	t.handler = handler
	t.mu.Unlock()

	t.engine.Use(
		httpengine.RecoveryMiddleware(t.logger),
		httpengine.LoggingMiddleware(t.logger),
	)
	t.engine.Handle("/health", []string{http.MethodGet}, http.HandlerFunc(httpengine.HealthHandler))
	t.engine.Handle(t.mcpPath, []string{http.MethodPost}, t.postHandler(handler))
	t.engine.Handle(t.mcpPath, []string{http.MethodGet}, t.streamHandler(handler))

	if err := t.engine.Bind(t.addr); err != nil {
		t.mu.Lock()
		t.state = transport.StateClosed
		t.mu.Unlock()
		return fmt.Errorf("httptransport: bind %s: %w", t.addr, err)
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- t.engine.Start() }()

	select {
	case <-ctx.Done():
		_ = t.Close(context.Background())
		return ctx.Err()
	case err := <-serveErr:
		t.mu.Lock()
		t.state = transport.StateClosed
		t.mu.Unlock()
		return err
	}
}

// Close shuts the underlying engine down, unblocking Start, and fires
// HandleClose for every session this Transport instance ever opened an
// SSE stream for (spec.md §4.2, §8: close is idempotent and causes
// exactly one handle_close per session). A second call is a no-op.
func (t *Transport) Close(ctx context.Context) error {
	t.mu.Lock()
	if t.state == transport.StateClosed {
		t.mu.Unlock()
		return nil
	}
	t.state = transport.StateClosed
	t.mu.Unlock()

	t.streamsMu.Lock()
	sessionIDs := make([]string, 0, len(t.streams))
	for sessionID := range t.streams {
		sessionIDs = append(sessionIDs, sessionID)
	}
	t.streamsMu.Unlock()
	for _, sessionID := range sessionIDs {
		t.notifySessionClose(ctx, sessionID)
	}

	return t.engine.Shutdown(ctx)
}

// notifySessionClose invokes handler.HandleClose for sessionID at most
// once across this Transport instance's lifetime, whether the natural
// streamHandler teardown or an explicit Close reaches it first.
func (t *Transport) notifySessionClose(ctx context.Context, sessionID string) {
	t.mu.Lock()
	h := t.handler
	t.mu.Unlock()
	if h == nil {
		return
	}

	t.streamsMu.Lock()
	_, already := t.closedSessions[sessionID]
	if !already {
		t.closedSessions[sessionID] = struct{}{}
	}
	t.streamsMu.Unlock()
	if already {
		return
	}
	h.HandleClose(ctx, sessionID)
}

// Send publishes msg to sessionID's notify.Hub channel, picked up by
// that session's open SSE stream (streamHandler) and written out as an
// event; HandleMessage's own return value already answers synchronous
// POST requests, so Send is only reached for out-of-band
// server-initiated traffic.
func (t *Transport) Send(ctx context.Context, sessionID string, msg *jsonrpc.Message) error {
	t.streamsMu.Lock()
	_, known := t.streams[sessionID]
	t.streamsMu.Unlock()
	if !known {
		return transport.ErrUnknownSession
	}
	t.hub.Publish(sessionID, msg)
	return nil
}

func (t *Transport) acquire() bool {
	select {
	case t.sem <- struct{}{}:
		return true
	default:
		return false
	}
}

func (t *Transport) release() { <-t.sem }

// postHandler returns the handler for "POST {mcpPath}": the synchronous
// JSON-RPC request/response path.
func (t *Transport) postHandler(handler transport.MessageHandler[HTTPContext]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !t.acquire() {
			if t.metrics != nil {
				t.metrics.RecordRateLimitRejection("http")
			}
			w.Header().Set("Retry-After", "1")
			http.Error(w, `{"error":"rate_limited"}`, http.StatusTooManyRequests)
			return
		}
		defer t.release()

		ctx := r.Context()
		ac, authErr := t.authenticate(r)
		if authErr != nil {
			t.writeAuthError(w, authErr)
			return
		}
		if ac == nil && t.requireAuth {
			t.writeAuthError(w, ierrors.NewOAuthError(ierrors.ErrorCodeInvalidToken, "authentication required"))
			return
		}
		if ac != nil {
			ctx = transport.ContextWithAuth(ctx, ac)
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, t.maxPayloadBytes+1))
		if err != nil {
			http.Error(w, `{"error":"read_failed"}`, http.StatusBadRequest)
			return
		}
		if t.maxPayloadBytes > 0 && int64(len(body)) > t.maxPayloadBytes {
			http.Error(w, `{"error":"payload_too_large"}`, http.StatusRequestEntityTooLarge)
			return
		}

		sessionID, minted := t.resolveSessionID(r)

		msgs, isBatch, parseErr := jsonrpc.ParseAny(body)
		var replies []*jsonrpc.Message
		var hint *transport.StatusHint
		if parseErr != nil {
			replies = []*jsonrpc.Message{jsonrpc.NewErrorResponse(nil, jsonrpc.CodeParseError, "parse error", nil)}
		} else {
			replies = make([]*jsonrpc.Message, 0, len(msgs))
			for _, m := range msgs {
				if jsonrpc.Classify(m) == jsonrpc.KindInvalid {
					replies = append(replies, jsonrpc.NewErrorResponse(m.ID, jsonrpc.CodeInvalidRequest, "invalid request", nil))
					continue
				}
				mc := transport.NewMessageContext(sessionID, m, HTTPContext{
					RemoteAddr: r.RemoteAddr,
					UserAgent:  r.UserAgent(),
				})
				reply, err := handler.HandleMessage(ctx, mc)
				if err != nil {
					if h, ok := transport.AsStatusHint(err); ok {
						// The first hint in a batch wins; every message in
						// a batch shares one HTTP response and status.
						if hint == nil {
							hint = h
						}
					} else {
						handler.HandleError(ctx, sessionID, err)
					}
				}
				if reply != nil {
					replies = append(replies, reply)
				}
			}
		}

		if minted {
			w.Header().Set(SessionIDHeader, sessionID)
		}

		out, err := jsonrpc.Serialize(replies, isBatch)
		if err != nil {
			http.Error(w, `{"error":"encode_failed"}`, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		status := http.StatusOK
		if hint != nil {
			status = hint.Status
			if hint.WWWAuthenticate != "" {
				w.Header().Set("WWW-Authenticate", hint.WWWAuthenticate)
			}
			if hint.RetryAfter != "" {
				w.Header().Set("Retry-After", hint.RetryAfter)
			}
		}
		if out == nil {
			if hint != nil {
				w.WriteHeader(status)
				return
			}
			w.WriteHeader(http.StatusAccepted)
			return
		}
		w.WriteHeader(status)
		_, _ = w.Write(out)
	}
}

// streamHandler returns the handler for "GET {mcpPath}": opens an SSE
// stream for server-initiated notifications addressed to the session
// named by Mcp-Session-Id, replaying any buffered events after
// Last-Event-ID before switching to live delivery.
func (t *Transport) streamHandler(handler transport.MessageHandler[HTTPContext]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, `{"error":"streaming_unsupported"}`, http.StatusNotImplemented)
			return
		}

		ac, authErr := t.authenticate(r)
		if authErr != nil {
			t.writeAuthError(w, authErr)
			return
		}
		if ac == nil && t.requireAuth {
			t.writeAuthError(w, ierrors.NewOAuthError(ierrors.ErrorCodeInvalidToken, "authentication required"))
			return
		}

		sessionID := r.Header.Get(SessionIDHeader)
		if sessionID == "" {
			http.Error(w, `{"error":"missing session id"}`, http.StatusBadRequest)
			return
		}

		buf := t.bufferFor(sessionID)
		ch := t.hub.Listen(sessionID)
		defer t.hub.Close(sessionID, ch)
		defer t.notifySessionClose(r.Context(), sessionID)

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		lastEventID := r.Header.Get(LastEventIDHeader)
		for _, ev := range buf.replay(lastEventID) {
			writeSSEEvent(w, ev)
		}
		flusher.Flush()

		ctx := r.Context()
		for {
			select {
			case <-ctx.Done():
				return
			case payload, ok := <-ch:
				if !ok {
					return
				}
				var wireMsg *jsonrpc.Message
				switch v := payload.(type) {
				case notify.Notification:
					params, err := json.Marshal(v.Params)
					if err != nil {
						handler.HandleError(ctx, sessionID, err)
						continue
					}
					wireMsg = jsonrpc.NewNotification(v.Method, params)
				case *jsonrpc.Message:
					wireMsg = v
				default:
					continue
				}
				b, err := json.Marshal(wireMsg)
				if err != nil {
					handler.HandleError(ctx, sessionID, err)
					continue
				}
				ev := buf.publish(b)
				writeSSEEvent(w, ev)
				flusher.Flush()
			}
		}
	}
}

func (t *Transport) bufferFor(sessionID string) *replayBuffer {
	t.streamsMu.Lock()
	defer t.streamsMu.Unlock()
	buf, ok := t.streams[sessionID]
	if !ok {
		buf = newReplayBuffer(t.sseReplaySize)
		t.streams[sessionID] = buf
	}
	return buf
}

// resolveSessionID returns the session id on the inbound request,
// minting a fresh uuid when none was presented (the first contact from a
// new client), reporting whether it minted one so the caller can echo it
// back in the response header.
func (t *Transport) resolveSessionID(r *http.Request) (id string, minted bool) {
	if id := r.Header.Get(SessionIDHeader); id != "" {
		return id, false
	}
	return uuid.NewString(), true
}

// authenticate extracts credentials from r and runs them through the
// configured authn.Manager, returning (nil, nil) when no credential was
// presented at all (the caller decides whether that is acceptable based
// on RequireAuth).
func (t *Transport) authenticate(r *http.Request) (*authn.AuthContext, error) {
	if t.auth == nil {
		return nil, nil
	}
	creds, present := extractCredentials(r)
	if !present {
		return nil, nil
	}
	ac, err := t.auth.Authenticate(r.Context(), creds)
	if err != nil {
		return nil, err
	}
	return ac, nil
}

func (t *Transport) writeAuthError(w http.ResponseWriter, err error) {
	oe, ok := err.(*ierrors.OAuthError)
	if !ok {
		oe = ierrors.NewOAuthError(ierrors.ErrorCodeInvalidToken, err.Error())
	}
	w.Header().Set("WWW-Authenticate", oe.WWWAuthenticate())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": oe.ErrorCode})
}

// extractCredentials reads the Authorization and X-Api-Key headers into
// an authn.Credentials, generalizing the teacher's single-purpose
// extractBearerToken to every scheme the authn package understands.
func extractCredentials(r *http.Request) (authn.Credentials, bool) {
	if apiKey := r.Header.Get("X-Api-Key"); apiKey != "" {
		return authn.Credentials{Scheme: "apikey", APIKey: apiKey}, true
	}

	header := r.Header.Get("Authorization")
	if header == "" {
		return authn.Credentials{}, false
	}
	scheme, value, ok := strings.Cut(header, " ")
	if !ok {
		return authn.Credentials{}, false
	}
	value = strings.TrimSpace(value)
	switch strings.ToLower(scheme) {
	case "bearer":
		return authn.Credentials{Scheme: "bearer", BearerToken: value}, true
	case "basic":
		decoded, err := base64.StdEncoding.DecodeString(value)
		if err != nil {
			return authn.Credentials{}, false
		}
		user, pass, ok := strings.Cut(string(decoded), ":")
		if !ok {
			return authn.Credentials{}, false
		}
		return authn.Credentials{Scheme: "basic", Username: user, Password: pass}, true
	default:
		return authn.Credentials{}, false
	}
}

var _ transport.Transport[HTTPContext] = (*Transport)(nil)

func writeSSEEvent(w http.ResponseWriter, ev sseEvent) {
	fmt.Fprintf(w, "id: %s\n", ev.id)
	fmt.Fprintf(w, "data: %s\n\n", ev.data)
}

// MCPPathFor builds the absolute MCP endpoint URL advertised in
// server-side documentation or protected-resource metadata, given a base
// URL and the configured mcpPath.
func MCPPathFor(baseURL, mcpPath string) string {
	return strings.TrimRight(baseURL, "/") + mcpPath
}

// PruneStream drops a session's replay buffer, so it no longer stays in
// the Transport after the session is gone. cmd/server does not call it.
func (t *Transport) PruneStream(sessionID string) {
	t.streamsMu.Lock()
	delete(t.streams, sessionID)
	t.streamsMu.Unlock()
}
