package httptransport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airsstack/mcp-runtime/internal/authn"
	"github.com/airsstack/mcp-runtime/internal/httpengine"
	"github.com/airsstack/mcp-runtime/internal/jsonrpc"
	"github.com/airsstack/mcp-runtime/internal/notify"
	"github.com/airsstack/mcp-runtime/internal/transport"
)

type fakeHandler struct {
	reply    *jsonrpc.Message
	err      error
	lastCall transport.MessageContext[HTTPContext]
}

func (f *fakeHandler) HandleMessage(ctx context.Context, mc transport.MessageContext[HTTPContext]) (*jsonrpc.Message, error) {
	f.lastCall = mc
	return f.reply, f.err
}

func (f *fakeHandler) HandleError(ctx context.Context, sessionID string, err error) {}

func (f *fakeHandler) HandleClose(ctx context.Context, sessionID string) {}

type fakeStrategy struct {
	name string
	ac   *authn.AuthContext
	err  error
}

func (s fakeStrategy) Name() string { return s.name }

func (s fakeStrategy) Authenticate(ctx context.Context, creds authn.Credentials) (*authn.AuthContext, error) {
	if creds.Scheme != "bearer" {
		return nil, authn.ErrSchemeNotHandled
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.ac, nil
}

func newTestTransport(t *testing.T, cfg Config) *Transport {
	t.Helper()
	if cfg.Engine == nil {
		cfg.Engine = httpengine.NewMuxEngine(httpengine.Config{})
	}
	if cfg.Hub == nil {
		cfg.Hub = notify.NewHub()
	}
	return New(cfg)
}

func TestPostHandler_MintsSessionIDOnFirstContact(t *testing.T) {
	tr := newTestTransport(t, Config{MaxPayloadBytes: 1 << 20})
	handler := &fakeHandler{reply: jsonrpc.NewResult(json.RawMessage(`1`), json.RawMessage(`{}`))}

	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	w := httptest.NewRecorder()

	tr.postHandler(handler)(w, req)

	resp := w.Result()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(SessionIDHeader))
	assert.Equal(t, resp.Header.Get(SessionIDHeader), handler.lastCall.SessionID)
}

func TestPostHandler_ReusesPresentedSessionID(t *testing.T) {
	tr := newTestTransport(t, Config{MaxPayloadBytes: 1 << 20})
	handler := &fakeHandler{reply: jsonrpc.NewResult(json.RawMessage(`1`), json.RawMessage(`{}`))}

	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	req.Header.Set(SessionIDHeader, "existing-session")
	w := httptest.NewRecorder()

	tr.postHandler(handler)(w, req)

	assert.Empty(t, w.Result().Header.Get(SessionIDHeader))
	assert.Equal(t, "existing-session", handler.lastCall.SessionID)
}

func TestPostHandler_StatusHintOverridesDefaultStatus(t *testing.T) {
	tr := newTestTransport(t, Config{MaxPayloadBytes: 1 << 20})
	handler := &fakeHandler{
		reply: jsonrpc.NewErrorResponse(json.RawMessage(`1`), jsonrpc.CodeForbidden, "forbidden", nil),
		err:   &transport.StatusHint{Status: transport.StatusForbidden, WWWAuthenticate: `Bearer error="insufficient_scope"`},
	}

	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"tools/call"}`))
	w := httptest.NewRecorder()

	tr.postHandler(handler)(w, req)

	resp := w.Result()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("WWW-Authenticate"), "insufficient_scope")
}

func TestPostHandler_NotificationYieldsNoBody(t *testing.T) {
	tr := newTestTransport(t, Config{MaxPayloadBytes: 1 << 20})
	handler := &fakeHandler{reply: nil}

	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(`{"jsonrpc":"2.0","method":"notifications/initialized"}`))
	w := httptest.NewRecorder()

	tr.postHandler(handler)(w, req)

	resp := w.Result()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
}

func TestPostHandler_PayloadTooLargeRejected(t *testing.T) {
	tr := newTestTransport(t, Config{MaxPayloadBytes: 8})
	handler := &fakeHandler{}

	body := `{"jsonrpc":"2.0","id":1,"method":"tools/list","params":{"padding":"xxxxxxxxxxxxxxxxxxxxxxxxxx"}}`
	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body))
	w := httptest.NewRecorder()

	tr.postHandler(handler)(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Result().StatusCode)
}

func TestPostHandler_RateLimitedWhenConcurrencyExhausted(t *testing.T) {
	tr := newTestTransport(t, Config{MaxPayloadBytes: 1 << 20, MaxConcurrent: 1})
	require.True(t, tr.acquire())
	defer tr.release()

	handler := &fakeHandler{reply: jsonrpc.NewResult(json.RawMessage(`1`), json.RawMessage(`{}`))}
	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	w := httptest.NewRecorder()

	tr.postHandler(handler)(w, req)

	resp := w.Result()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
}

func TestPostHandler_RequiresAuthWhenConfigured(t *testing.T) {
	mgr := authn.NewManager(fakeStrategy{name: "fake"})
	tr := newTestTransport(t, Config{MaxPayloadBytes: 1 << 20, RequireAuth: true, Auth: mgr})
	handler := &fakeHandler{}

	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	w := httptest.NewRecorder()

	tr.postHandler(handler)(w, req)

	resp := w.Result()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("WWW-Authenticate"), "Bearer")
}

func TestPostHandler_AcceptsValidBearerCredential(t *testing.T) {
	ac := &authn.AuthContext{Strategy: "fake", Subject: "user-1"}
	mgr := authn.NewManager(fakeStrategy{name: "fake", ac: ac})
	tr := newTestTransport(t, Config{MaxPayloadBytes: 1 << 20, RequireAuth: true, Auth: mgr})
	handler := &fakeHandler{reply: jsonrpc.NewResult(json.RawMessage(`1`), json.RawMessage(`{}`))}

	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	req.Header.Set("Authorization", "Bearer sometoken")
	w := httptest.NewRecorder()

	tr.postHandler(handler)(w, req)

	assert.Equal(t, http.StatusOK, w.Result().StatusCode)
}

func TestExtractCredentials(t *testing.T) {
	t.Run("bearer", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
		req.Header.Set("Authorization", "Bearer abc123")
		creds, ok := extractCredentials(req)
		require.True(t, ok)
		assert.Equal(t, "bearer", creds.Scheme)
		assert.Equal(t, "abc123", creds.BearerToken)
	})

	t.Run("api key header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
		req.Header.Set("X-Api-Key", "my-key")
		creds, ok := extractCredentials(req)
		require.True(t, ok)
		assert.Equal(t, "apikey", creds.Scheme)
		assert.Equal(t, "my-key", creds.APIKey)
	})

	t.Run("basic", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
		req.SetBasicAuth("alice", "secret")
		creds, ok := extractCredentials(req)
		require.True(t, ok)
		assert.Equal(t, "basic", creds.Scheme)
		assert.Equal(t, "alice", creds.Username)
		assert.Equal(t, "secret", creds.Password)
	})

	t.Run("none presented", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
		_, ok := extractCredentials(req)
		assert.False(t, ok)
	})
}

func TestTransport_SendToUnknownSessionFails(t *testing.T) {
	tr := newTestTransport(t, Config{})
	err := tr.Send(context.Background(), "no-such-session", jsonrpc.NewNotification("notifications/resources/updated", nil))
	assert.ErrorIs(t, err, transport.ErrUnknownSession)
}

func TestTransport_SendPublishesToKnownStream(t *testing.T) {
	tr := newTestTransport(t, Config{})
	tr.bufferFor("session-1")

	err := tr.Send(context.Background(), "session-1", jsonrpc.NewNotification("notifications/resources/updated", nil))
	assert.NoError(t, err)
}
