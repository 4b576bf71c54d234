// Package authz defines compile-time, zero-cost authorization policies,
// generalizing the teacher's runtime scope-checking middleware
// (internal/oauth's ScopeChecker) into a generic parameter on the server
// type. A Policy[C] is evaluated against the authenticated context type C
// the server was built with; an unused policy or an unused authn
// strategy never has its code reached, letting the compiler drop it.
package authz

import (
	"context"
	"fmt"

	"github.com/airsstack/mcp-runtime/internal/authn"
	ierrors "github.com/airsstack/mcp-runtime/internal/errors"
)

const domainAuthz = "authz"

// Policy authorizes one MCP method call for an authenticated context C.
// Authorize receives the JSON-RPC method name exactly as it appears on
// the wire (e.g. "tools/call"), never a transport route, so the same
// policy applies identically regardless of binding.
type Policy[C any] interface {
	Authorize(ctx context.Context, auth C, method string) error
}

// NoAuthorization is a zero-field Policy that always allows. Because it
// carries no state and its Authorize body is a single "return nil", the
// compiler can inline it away entirely for servers built with
// Server[..., NoAuthorization[C]] — there is no runtime scope check left
// to pay for in a deployment that does not want one.
type NoAuthorization[C any] struct{}

// Authorize implements Policy; always succeeds.
func (NoAuthorization[C]) Authorize(ctx context.Context, auth C, method string) error {
	return nil
}

// ScopeBased authorizes by consulting a per-method required-scope table,
// generalizing the teacher's ScopeChecker (which only ever checked one
// hard-coded set) to the full MCP method surface. C must be able to
// report its granted scopes via the Scoped interface.
type Scoped interface {
	HasScope(scope string) bool
}

// ScopeBased is a Policy requiring at least one of a method's configured
// scopes to be present in the authenticated context.
type ScopeBased[C Scoped] struct {
	// Required maps a method name to the scopes that satisfy it (any one
	// suffices). A method absent from the map falls back to Default.
	Required map[string][]string

	// Default is applied to methods not present in Required. An empty
	// Default slice means "no scope required" for unlisted methods.
	Default []string
}

// DefaultMCPScopes returns the per-method required-scope mapping:
// initialize requires the baseline mcp:connect scope (spec.md §4.5), a
// client only ever holds by virtue of having completed the resource
// owner's grant for this server at all; notifications/initialized
// requires nothing since it is a notification fired as a direct
// consequence of a successful initialize and carries no independent
// authorization decision. Every other method requires the narrow scope
// matching its effect rather than a coarse read/write split.
func DefaultMCPScopes() map[string][]string {
	return map[string][]string{
		"initialize":                {"mcp:connect"},
		"notifications/initialized": nil,
		"tools/list":                {"mcp:tools:read"},
		"tools/call":                {"mcp:tools:execute"},
		"resources/list":            {"mcp:resources:list"},
		"resources/templates/list":  {"mcp:resources:list"},
		"resources/read":            {"mcp:resources:read"},
		"resources/subscribe":       {"mcp:resources:subscribe"},
		"resources/unsubscribe":     {"mcp:resources:subscribe"},
		"prompts/list":              {"mcp:prompts:list"},
		"prompts/get":               {"mcp:prompts:read"},
		"logging/setLevel":          {"mcp:logging:write"},
	}
}

// Authorize implements Policy.
func (p ScopeBased[C]) Authorize(ctx context.Context, auth C, method string) error {
	required, ok := p.Required[method]
	if !ok {
		required = p.Default
	}
	if len(required) == 0 {
		return nil
	}
	for _, scope := range required {
		if auth.HasScope(scope) {
			return nil
		}
	}
	return ierrors.New(domainAuthz, "Authorize", ierrors.ErrForbidden,
		fmt.Errorf("method %q requires one of scopes %v", method, required))
}

// Binary is a Policy that allows or denies every method uniformly,
// useful for deployments gating the whole server behind a single
// authenticated-or-not check (no per-method granularity).
type Binary[C any] struct {
	// Allow reports whether auth is permitted to call any method.
	Allow func(auth C) bool
}

// Authorize implements Policy.
func (p Binary[C]) Authorize(ctx context.Context, auth C, method string) error {
	if p.Allow == nil || p.Allow(auth) {
		return nil
	}
	return ierrors.New(domainAuthz, "Authorize", ierrors.ErrForbidden, fmt.Errorf("method %q denied", method))
}

// compile-time assertions that authn.AuthContext satisfies Scoped, the
// concrete C most server builders will use.
var _ Scoped = (*authn.AuthContext)(nil)
