// Package authn defines the pluggable authentication contract: a
// Strategy validates one kind of credential (Bearer JWT, API key, HTTP
// Basic) and a Manager tries a declared ordered list of strategies until
// one accepts the request. This generalizes the teacher's single
// OAuth-only TokenValidator into the multi-strategy composition the spec
// requires, while keeping its TokenClaims-shaped result type so the
// authorization layer can keep working in terms of scopes.
package authn

import (
	"context"
	"errors"
	"time"
)

// Credentials is the transport-agnostic input to a Strategy. Exactly the
// fields relevant to the presented scheme are populated; a transport
// adapter fills this in from whatever carries auth on its binding (an
// Authorization header on HTTP, an out-of-band handshake field on
// stdio).
type Credentials struct {
	// Scheme is the presented auth scheme, lowercased ("bearer", "basic",
	// "apikey"). Empty means no credential was presented at all.
	Scheme string

	// BearerToken holds the raw token when Scheme == "bearer".
	BearerToken string

	// Username/Password hold HTTP Basic credentials when Scheme == "basic".
	Username string
	Password string

	// APIKey holds a raw key value for out-of-band API key schemes
	// (e.g. an X-API-Key header), independent of the Authorization
	// header scheme.
	APIKey string
}

// AuthContext is the result of a successful authentication, generalizing
// the teacher's TokenClaims to cover non-JWT strategies. Scopes drives
// internal/authz's ScopeBased policy.
type AuthContext struct {
	// Strategy names which Strategy produced this result ("oauth2",
	// "apikey", "basic").
	Strategy string

	// Subject identifies the authenticated principal.
	Subject string

	// Scopes is the set of granted scopes/permissions.
	Scopes []string

	// Issuer is populated for strategies backed by a token issuer
	// (empty for apikey/basic).
	Issuer string

	// ExpiresAt is the credential's expiry, zero value if the strategy
	// has no notion of expiry (apikey, basic).
	ExpiresAt time.Time
}

// HasScope reports whether ac grants scope.
func (ac *AuthContext) HasScope(scope string) bool {
	if ac == nil {
		return false
	}
	for _, s := range ac.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// Strategy authenticates one kind of Credentials. Implementations return
// ierrors.ErrUnauthorized (wrapped in a DomainError) when the presented
// credential is invalid for this strategy, and a sentinel
// ErrSchemeNotHandled when Credentials.Scheme does not match what this
// strategy understands, so Manager can try the next strategy without
// treating a scheme mismatch as an authentication failure.
type Strategy interface {
	Name() string
	Authenticate(ctx context.Context, creds Credentials) (*AuthContext, error)
}

// ErrSchemeNotHandled signals that a Strategy does not recognize the
// presented scheme and the Manager should try the next one. Strategy
// implementations return this sentinel itself, not wrapped in a
// DomainError.
var ErrSchemeNotHandled = errors.New("authn: scheme not handled")

// Manager tries a declared ordered list of Strategy implementations
// against one set of Credentials, returning the first successful
// AuthContext. This mirrors the teacher's single-validator
// AuthMiddleware generalized to the spec's "try strategies in declared
// order" composition rule.
type Manager struct {
	strategies []Strategy
}

// NewManager constructs a Manager trying strategies in the given order.
func NewManager(strategies ...Strategy) *Manager {
	return &Manager{strategies: strategies}
}

// StrategyCount reports how many strategies are composed into m, so a
// server builder can check a transport that requires authentication
// actually has something to authenticate against.
func (m *Manager) StrategyCount() int {
	return len(m.strategies)
}

// Authenticate tries each configured strategy in order. If every
// strategy either rejects the scheme or rejects the credential, the last
// non-scheme-mismatch error is returned; if no strategy is configured,
// or none handled the scheme at all, ErrNoneConfigured is returned.
func (m *Manager) Authenticate(ctx context.Context, creds Credentials) (*AuthContext, error) {
	var lastErr error
	handled := false

	for _, s := range m.strategies {
		ac, err := s.Authenticate(ctx, creds)
		if err == nil {
			return ac, nil
		}
		if isSchemeMismatch(err) {
			continue
		}
		handled = true
		lastErr = err
	}

	if !handled {
		return nil, ErrNoneConfigured
	}
	return nil, lastErr
}

// ErrNoneConfigured is returned when no configured strategy recognized
// the presented credential scheme at all (as opposed to recognizing it
// and rejecting it).
var ErrNoneConfigured = errors.New("authn: no strategy configured for presented scheme")

func isSchemeMismatch(err error) bool {
	return errors.Is(err, ErrSchemeNotHandled)
}
