// Package serverbuilder validates a server composition before any
// transport is started, the way internal/config.Validate checks a
// loaded Config's field shapes: this package checks the shape of the
// composition itself, across packages config.Validate cannot see
// (providers, the authorization policy's method map, the authentication
// manager), per spec.md §4.11's server-build-step requirement.
package serverbuilder

import "fmt"

// Capabilities records which provider-backed capability groups a build
// registers. Validate derives what the policy is allowed to gate from
// these four flags; mcpserver.Handler does not read them and derives
// what it advertises from which of its providers are non-nil.
type Capabilities struct {
	Tools     bool
	Resources bool
	Prompts   bool
	Logging   bool
}

// methodGroup returns which Capabilities field a method belongs to, or
// "" for methods no provider gates (initialize, notifications).
func methodGroup(method string) string {
	switch method {
	case "tools/list", "tools/call":
		return "tools"
	case "resources/list", "resources/templates/list", "resources/read",
		"resources/subscribe", "resources/unsubscribe":
		return "resources"
	case "prompts/list", "prompts/get":
		return "prompts"
	case "logging/setLevel":
		return "logging"
	default:
		return ""
	}
}

func (c Capabilities) enabled(group string) bool {
	switch group {
	case "tools":
		return c.Tools
	case "resources":
		return c.Resources
	case "prompts":
		return c.Prompts
	case "logging":
		return c.Logging
	default:
		return true
	}
}

// Spec is the set of build-time decisions Validate cross-checks.
type Spec struct {
	// Caps names which capability groups this build's providers cover.
	Caps Capabilities

	// MethodScopes is the authorization policy's method-to-required-
	// scopes map (authz.ScopeBased.Required), or nil when the policy
	// does not key its decision off individual methods (NoAuthorization,
	// Binary).
	MethodScopes map[string][]string

	// RequireAuth is true when the transport rejects unauthenticated
	// requests outright (internal/httptransport.Config.RequireAuth);
	// stdio has no such gate and always passes false here.
	RequireAuth bool

	// AuthStrategyCount is the number of strategies composed into the
	// authn.Manager this build uses.
	AuthStrategyCount int
}

// Validate checks Spec against two of spec.md §4.11's server-build
// invariants, returning the first violation found. Whether advertised
// capabilities match registered providers is not checked here.
//
//   - Every method the authorization policy assigns scopes to is gated
//     by a capability this build actually registers a provider for; a
//     scoped method with no backing provider can never be reached, which
//     means the policy entry is dead weight at best and a sign the
//     provider wiring was forgotten at worst.
//   - A transport that requires authentication has at least one
//     authentication strategy composed into its manager; otherwise every
//     request would be rejected as unauthenticated regardless of what
//     credentials a client presents.
func Validate(spec Spec) error {
	for method, scopes := range spec.MethodScopes {
		if len(scopes) == 0 {
			continue
		}
		group := methodGroup(method)
		if group == "" {
			continue
		}
		if !spec.Caps.enabled(group) {
			return fmt.Errorf("serverbuilder: authorization policy requires scopes for %q, but no %s provider is registered", method, group)
		}
	}

	if spec.RequireAuth && spec.AuthStrategyCount == 0 {
		return fmt.Errorf("serverbuilder: transport requires authentication but no authentication strategy is configured")
	}

	return nil
}
