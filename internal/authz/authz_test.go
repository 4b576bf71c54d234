package authz_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airsstack/mcp-runtime/internal/authn"
	"github.com/airsstack/mcp-runtime/internal/authz"
)

func TestNoAuthorization_AlwaysAllows(t *testing.T) {
	var p authz.NoAuthorization[*authn.AuthContext]
	err := p.Authorize(context.Background(), &authn.AuthContext{}, "tools/call")
	assert.NoError(t, err)
}

func TestScopeBased_AllowsWithScope(t *testing.T) {
	p := authz.ScopeBased[*authn.AuthContext]{Required: authz.DefaultMCPScopes()}
	auth := &authn.AuthContext{Scopes: []string{"mcp:tools:read"}}
	require.NoError(t, p.Authorize(context.Background(), auth, "tools/list"))
}

func TestScopeBased_DeniesWithoutScope(t *testing.T) {
	p := authz.ScopeBased[*authn.AuthContext]{Required: authz.DefaultMCPScopes()}
	auth := &authn.AuthContext{Scopes: []string{"mcp:read"}}
	err := p.Authorize(context.Background(), auth, "tools/call")
	assert.Error(t, err)
}

func TestScopeBased_UnlistedMethodUsesDefault(t *testing.T) {
	p := authz.ScopeBased[*authn.AuthContext]{Default: []string{"mcp:write"}}
	auth := &authn.AuthContext{Scopes: []string{"mcp:write"}}
	require.NoError(t, p.Authorize(context.Background(), auth, "custom/method"))
}

func TestScopeBased_InitializeRequiresConnectScope(t *testing.T) {
	p := authz.ScopeBased[*authn.AuthContext]{Required: authz.DefaultMCPScopes()}
	assert.Error(t, p.Authorize(context.Background(), &authn.AuthContext{}, "initialize"))
	auth := &authn.AuthContext{Scopes: []string{"mcp:connect"}}
	require.NoError(t, p.Authorize(context.Background(), auth, "initialize"))
}

func TestBinary_Allow(t *testing.T) {
	p := authz.Binary[*authn.AuthContext]{Allow: func(a *authn.AuthContext) bool { return a.Subject == "ok" }}
	require.NoError(t, p.Authorize(context.Background(), &authn.AuthContext{Subject: "ok"}, "tools/call"))
	assert.Error(t, p.Authorize(context.Background(), &authn.AuthContext{Subject: "nope"}, "tools/call"))
}

func TestBinary_NilAllowAllowsEverything(t *testing.T) {
	var p authz.Binary[*authn.AuthContext]
	require.NoError(t, p.Authorize(context.Background(), &authn.AuthContext{}, "tools/call"))
}
