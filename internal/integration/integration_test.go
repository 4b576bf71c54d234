// Package integration exercises the full stack end to end: a real
// bound HTTP listener, OAuth2/JWT authentication against a mocked
// JWKS key source, scope-based authorization, and a round trip
// through initialize, notifications/initialized, and tools/call, the way the
// teacher's own integration test wired its OAuth + MCP + transport
// services together behind an httptest server.
package integration

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/airsstack/mcp-runtime/internal/authn"
	"github.com/airsstack/mcp-runtime/internal/authn/oauth2"
	"github.com/airsstack/mcp-runtime/internal/authz"
	"github.com/airsstack/mcp-runtime/internal/httpengine"
	"github.com/airsstack/mcp-runtime/internal/httptransport"
	"github.com/airsstack/mcp-runtime/internal/mcpproto"
	"github.com/airsstack/mcp-runtime/internal/mcpserver"
	"github.com/airsstack/mcp-runtime/internal/notify"
	"github.com/airsstack/mcp-runtime/internal/obsmetrics"
	"github.com/airsstack/mcp-runtime/internal/providers"
	"github.com/airsstack/mcp-runtime/internal/session"
)

const testKeyID = "test-key-1"

// echoTool is a minimal providers.Tool used only by this test.
type echoTool struct{}

func (echoTool) Execute(ctx context.Context, args map[string]any) (*mcpproto.ToolsCallResult, error) {
	msg, _ := args["message"].(string)
	return &mcpproto.ToolsCallResult{Content: []mcpproto.Content{{Type: "text", Text: msg}}}, nil
}

func (echoTool) Definition() mcpproto.ToolDefinition {
	return mcpproto.ToolDefinition{Name: "echo", Description: "echoes its input", InputSchema: map[string]any{"type": "object"}}
}

// mockKeySource hands back one RSA public key for testKeyID, standing
// in for internal/authn/jwks.Client's network fetch.
type mockKeySource struct {
	publicKey *rsa.PublicKey
}

func (m *mockKeySource) GetKey(_ context.Context, keyID string) (any, error) {
	if keyID != testKeyID {
		return nil, fmt.Errorf("key not found: %s", keyID)
	}
	return m.publicKey, nil
}

type testFixture struct {
	baseURL    string
	privateKey *rsa.PrivateKey
	audience   string
	transport  *httptransport.Transport
	cancel     context.CancelFunc
	done       chan error
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	audience := "https://test.example.com/mcp"
	keys := &mockKeySource{publicKey: &privateKey.PublicKey}
	strategy := oauth2.New(keys, audience, time.Minute)
	auth := authn.NewManager(strategy)

	policy := authz.ScopeBased[*authn.AuthContext]{Required: authz.DefaultMCPScopes()}

	tools := providers.NewToolRegistry()
	require.NoError(t, tools.RegisterTool("echo", echoTool{}))

	hub := notify.NewHub()
	sessions := session.NewManager(0, 0)
	metrics := obsmetrics.New()

	handler := mcpserver.New[httptransport.HTTPContext, providers.ToolProvider, providers.ResourceProvider, providers.PromptProvider, providers.LoggingProvider, authz.Policy[*authn.AuthContext]](
		mcpserver.ServerInfo{Name: "integration-test-server", Version: "0.0.0-test"},
		tools, nil, nil, nil, policy,
		sessions, hub, metrics, nil, "http",
	)

	engine := httpengine.NewMuxEngine(httpengine.Config{
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  30 * time.Second,
	})

	tr := httptransport.New(httptransport.Config{
		Addr:            "127.0.0.1:0",
		BaseURL:         "https://test.example.com",
		MaxPayloadBytes: 1 << 20,
		MaxConcurrent:   16,
		RequireAuth:     true,
		Engine:          engine,
		Auth:            auth,
		Hub:             hub,
		Metrics:         metrics,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tr.Start(ctx, handler) }()

	var addr string
	require.Eventually(t, func() bool {
		if a := engine.LocalAddr(); a != nil {
			addr = a.String()
			return true
		}
		return false
	}, 2*time.Second, 10*time.Millisecond, "engine never bound a listener")

	return &testFixture{
		baseURL:    "http://" + addr,
		privateKey: privateKey,
		audience:   audience,
		transport:  tr,
		cancel:     cancel,
		done:       done,
	}
}

func (f *testFixture) teardown(t *testing.T) {
	t.Helper()
	f.cancel()
	select {
	case <-f.done:
	case <-time.After(2 * time.Second):
		t.Fatal("transport did not stop in time")
	}
}

// createToken signs claims with the fixture's private key, defaulting
// kid/alg/exp/aud to values the test server accepts.
func (f *testFixture) createToken(t *testing.T, scopes []string, overrides jwt.MapClaims) string {
	t.Helper()

	claims := jwt.MapClaims{
		"sub": "test-user",
		"iss": "https://auth.example.com",
		"aud": f.audience,
		"exp": time.Now().Add(time.Hour).Unix(),
		"iat": time.Now().Unix(),
		"scope": func() string {
			out := ""
			for i, s := range scopes {
				if i > 0 {
					out += " "
				}
				out += s
			}
			return out
		}(),
	}
	for k, v := range overrides {
		claims[k] = v
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = testKeyID
	signed, err := token.SignedString(f.privateKey)
	require.NoError(t, err)
	return signed
}

func (f *testFixture) post(t *testing.T, body string, bearer string, sessionID string) (*http.Response, string) {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, f.baseURL+"/mcp", bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	if sessionID != "" {
		req.Header.Set(httptransport.SessionIDHeader, sessionID)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(respBody)
}

func TestIntegration_InitializeRequiresConnectScope(t *testing.T) {
	f := setupTestFixture(t)
	defer f.teardown(t)

	token := f.createToken(t, []string{"mcp:connect"}, nil)
	resp, body := f.post(t, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-06-18","clientInfo":{"name":"test","version":"1"}}}`, token, "")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, `"serverInfo"`)
	require.NotEmpty(t, resp.Header.Get(httptransport.SessionIDHeader))
}

func TestIntegration_InitializeWithoutConnectScopeRejected(t *testing.T) {
	f := setupTestFixture(t)
	defer f.teardown(t)

	token := f.createToken(t, []string{"mcp:tools:execute"}, nil)
	resp, body := f.post(t, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-06-18","clientInfo":{"name":"test","version":"1"}}}`, token, "")

	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Contains(t, resp.Header.Get("WWW-Authenticate"), "insufficient_scope")

	var parsed map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &parsed))
	require.Contains(t, parsed, "error")
}

func TestIntegration_ToolCallRequiresScope(t *testing.T) {
	f := setupTestFixture(t)
	defer f.teardown(t)

	initToken := f.createToken(t, []string{"mcp:connect"}, nil)
	resp, _ := f.post(t, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-06-18","clientInfo":{"name":"test","version":"1"}}}`, initToken, "")
	sessionID := resp.Header.Get(httptransport.SessionIDHeader)
	require.NotEmpty(t, sessionID)

	f.post(t, `{"jsonrpc":"2.0","method":"notifications/initialized"}`, initToken, sessionID)

	insufficientToken := f.createToken(t, []string{"mcp:tools:read"}, nil)
	resp, body := f.post(t, `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"echo","arguments":{"message":"hi"}}}`, insufficientToken, sessionID)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Contains(t, resp.Header.Get("WWW-Authenticate"), "insufficient_scope")

	var parsed map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &parsed))
	require.Contains(t, parsed, "error")

	sufficientToken := f.createToken(t, []string{"mcp:tools:execute"}, nil)
	resp, body = f.post(t, `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"echo","arguments":{"message":"hi"}}}`, sufficientToken, sessionID)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, `"hi"`)
}

func TestIntegration_MissingTokenRejected(t *testing.T) {
	f := setupTestFixture(t)
	defer f.teardown(t)

	resp, _ := f.post(t, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-06-18","clientInfo":{"name":"test","version":"1"}}}`, "", "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("WWW-Authenticate"))
}

func TestIntegration_ExpiredTokenRejected(t *testing.T) {
	f := setupTestFixture(t)
	defer f.teardown(t)

	expired := f.createToken(t, nil, jwt.MapClaims{"exp": time.Now().Add(-time.Hour).Unix()})
	resp, _ := f.post(t, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-06-18","clientInfo":{"name":"test","version":"1"}}}`, expired, "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
