// Package apikey implements a static API-key authn.Strategy: a single
// shared-secret header value maps to a principal and a fixed scope set,
// the way a service-to-service integration is typically gated, distinct
// from the teacher's per-user OAuth tokens.
package apikey

import (
	"context"
	"crypto/subtle"
	"fmt"

	"github.com/airsstack/mcp-runtime/internal/authn"
	ierrors "github.com/airsstack/mcp-runtime/internal/errors"
)

const domainAPIKey = "apikey"

// Principal is the identity and grant bound to one API key.
type Principal struct {
	Subject string
	Scopes  []string
}

// Strategy authenticates a raw key value against an in-memory table. Key
// comparison uses crypto/subtle to avoid timing side channels; no
// library in the example pack offers constant-time map lookup, so this
// one comparison is a deliberate stdlib primitive rather than a gap.
type Strategy struct {
	keys map[string]Principal
}

// New constructs a Strategy from a key -> Principal table.
func New(keys map[string]Principal) *Strategy {
	return &Strategy{keys: keys}
}

// Name implements authn.Strategy.
func (s *Strategy) Name() string { return "apikey" }

// Authenticate implements authn.Strategy. A key presented either as
// "X-API-Key: <key>" (Scheme "apikey") or as "Authorization: Bearer
// <key>" (Scheme "bearer", the value an opaque non-JWT token) is
// accepted here; oauth2.Strategy claims the "bearer" scheme first when
// the token happens to parse as a JWT, so the two strategies compose
// without ambiguity under authn.Manager's ordered-try rule.
func (s *Strategy) Authenticate(ctx context.Context, creds authn.Credentials) (*authn.AuthContext, error) {
	key := creds.APIKey
	if creds.Scheme == "bearer" {
		key = creds.BearerToken
	} else if creds.Scheme != "apikey" {
		return nil, authn.ErrSchemeNotHandled
	}
	if key == "" {
		return nil, ierrors.New(domainAPIKey, "Authenticate", ierrors.ErrUnauthorized, fmt.Errorf("empty api key"))
	}

	for candidate, p := range s.keys {
		if subtle.ConstantTimeCompare([]byte(candidate), []byte(key)) == 1 {
			return &authn.AuthContext{Strategy: "apikey", Subject: p.Subject, Scopes: p.Scopes}, nil
		}
	}
	return nil, ierrors.New(domainAPIKey, "Authenticate", ierrors.ErrUnauthorized, fmt.Errorf("unknown api key"))
}
