// Package oauth2 implements the Bearer/JWT authn.Strategy: validating an
// access token's signature via JWKS, its algorithm against an allow-list,
// and its standard claims, the way the teacher's internal/oauth/internal
// /token package does, generalized into the authn.Strategy shape so it
// composes with API key and Basic auth strategies.
package oauth2

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/airsstack/mcp-runtime/internal/authn"
	ierrors "github.com/airsstack/mcp-runtime/internal/errors"
)

const domainOAuth2 = "oauth2"

// allowedAlgorithms whitelists signing algorithms to prevent algorithm
// confusion attacks (e.g. an attacker presenting "alg": "none").
var allowedAlgorithms = map[string]bool{
	"RS256": true, "RS384": true, "RS512": true,
	"ES256": true, "ES384": true, "ES512": true,
}

// KeySource resolves a kid to the public key that should verify it. The
// concrete implementation is internal/authn/jwks.Client; this interface
// exists so the strategy never imports the HTTP-fetching details.
type KeySource interface {
	GetKey(ctx context.Context, keyID string) (any, error)
}

// Strategy is the authn.Strategy implementation for Bearer JWT access
// tokens, per OAuth 2.1 Section 5.2 resource-server validation rules.
type Strategy struct {
	keys      KeySource
	audience  string
	clockSkew time.Duration
}

// New constructs a Strategy validating tokens against keys, requiring the
// "aud" claim to contain audience, with the given clock-skew leeway
// applied to exp/nbf checks.
func New(keys KeySource, audience string, clockSkew time.Duration) *Strategy {
	return &Strategy{keys: keys, audience: audience, clockSkew: clockSkew}
}

// Name implements authn.Strategy.
func (s *Strategy) Name() string { return "oauth2" }

// Authenticate implements authn.Strategy.
func (s *Strategy) Authenticate(ctx context.Context, creds authn.Credentials) (*authn.AuthContext, error) {
	if creds.Scheme != "bearer" {
		return nil, authn.ErrSchemeNotHandled
	}

	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	unverified, _, err := parser.ParseUnverified(creds.BearerToken, jwt.MapClaims{})
	if err != nil {
		// A Bearer value that does not even parse as a JWT is not this
		// strategy's concern at all (it may be a plain API key presented
		// as a Bearer token); let Manager try the next strategy rather
		// than reporting an authentication failure.
		return nil, authn.ErrSchemeNotHandled
	}

	alg, _ := unverified.Header["alg"].(string)
	if alg == "" || !allowedAlgorithms[alg] {
		return nil, ierrors.New(domainOAuth2, "Authenticate", ierrors.ErrUnauthorized, fmt.Errorf("unsupported algorithm %q", alg))
	}

	kid, _ := unverified.Header["kid"].(string)
	if kid == "" {
		return nil, ierrors.New(domainOAuth2, "Authenticate", ierrors.ErrUnauthorized, fmt.Errorf("missing kid in token header"))
	}

	key, err := s.keys.GetKey(ctx, kid)
	if err != nil {
		return nil, ierrors.New(domainOAuth2, "Authenticate", ierrors.ErrUnauthorized, err)
	}
	if key == nil {
		return nil, ierrors.New(domainOAuth2, "Authenticate", ierrors.ErrUnauthorized, fmt.Errorf("signing key %q not found", kid))
	}

	validated, err := jwt.Parse(creds.BearerToken, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != alg {
			return nil, fmt.Errorf("algorithm mismatch: %s", t.Method.Alg())
		}
		return key, nil
	}, jwt.WithLeeway(s.clockSkew))
	if err != nil {
		return nil, ierrors.New(domainOAuth2, "Authenticate", ierrors.ErrUnauthorized, err)
	}
	if !validated.Valid {
		return nil, ierrors.New(domainOAuth2, "Authenticate", ierrors.ErrUnauthorized, fmt.Errorf("token is invalid"))
	}

	mapClaims, ok := validated.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ierrors.New(domainOAuth2, "Authenticate", ierrors.ErrUnauthorized, fmt.Errorf("unexpected claims type"))
	}

	ac, audience, err := s.extractClaims(mapClaims)
	if err != nil {
		return nil, err
	}
	if !audiencePresent(audience, s.audience) {
		return nil, ierrors.New(domainOAuth2, "Authenticate", ierrors.ErrUnauthorized, fmt.Errorf("audience %q not present in token", s.audience))
	}
	return ac, nil
}

func (s *Strategy) extractClaims(mapClaims jwt.MapClaims) (*authn.AuthContext, []string, error) {
	sub, err := mapClaims.GetSubject()
	if err != nil || sub == "" {
		return nil, nil, ierrors.New(domainOAuth2, "extractClaims", ierrors.ErrUnauthorized, fmt.Errorf("missing claim: sub"))
	}
	iss, err := mapClaims.GetIssuer()
	if err != nil || iss == "" {
		return nil, nil, ierrors.New(domainOAuth2, "extractClaims", ierrors.ErrUnauthorized, fmt.Errorf("missing claim: iss"))
	}
	aud, err := mapClaims.GetAudience()
	if err != nil || len(aud) == 0 {
		return nil, nil, ierrors.New(domainOAuth2, "extractClaims", ierrors.ErrUnauthorized, fmt.Errorf("missing claim: aud"))
	}
	exp, err := mapClaims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, nil, ierrors.New(domainOAuth2, "extractClaims", ierrors.ErrUnauthorized, fmt.Errorf("missing claim: exp"))
	}

	ac := &authn.AuthContext{
		Strategy:  "oauth2",
		Subject:   sub,
		Issuer:    iss,
		ExpiresAt: exp.Time,
	}
	if scopeStr, ok := mapClaims["scope"].(string); ok {
		ac.Scopes = parseScopes(scopeStr)
	}
	return ac, aud, nil
}

func audiencePresent(audience []string, want string) bool {
	for _, a := range audience {
		if a == want {
			return true
		}
	}
	return false
}

func parseScopes(scopeStr string) []string {
	if scopeStr == "" {
		return nil
	}
	var scopes []string
	for _, part := range strings.Split(scopeStr, " ") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			scopes = append(scopes, trimmed)
		}
	}
	return scopes
}
