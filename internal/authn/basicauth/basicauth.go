// Package basicauth implements HTTP Basic credentials as an
// authn.Strategy, for deployments that front the server with a simple
// shared username/password instead of an authorization server.
package basicauth

import (
	"context"
	"crypto/subtle"
	"fmt"

	"github.com/airsstack/mcp-runtime/internal/authn"
	ierrors "github.com/airsstack/mcp-runtime/internal/errors"
)

const domainBasic = "basicauth"

// Principal is the identity and grant bound to one username/password pair.
type Principal struct {
	Password string
	Subject  string
	Scopes   []string
}

// Strategy authenticates username/password against an in-memory table.
type Strategy struct {
	users map[string]Principal
}

// New constructs a Strategy from a username -> Principal table.
func New(users map[string]Principal) *Strategy {
	return &Strategy{users: users}
}

// Name implements authn.Strategy.
func (s *Strategy) Name() string { return "basic" }

// Authenticate implements authn.Strategy.
func (s *Strategy) Authenticate(ctx context.Context, creds authn.Credentials) (*authn.AuthContext, error) {
	if creds.Scheme != "basic" {
		return nil, authn.ErrSchemeNotHandled
	}

	p, ok := s.users[creds.Username]
	if !ok {
		return nil, ierrors.New(domainBasic, "Authenticate", ierrors.ErrUnauthorized, fmt.Errorf("unknown user"))
	}
	if subtle.ConstantTimeCompare([]byte(p.Password), []byte(creds.Password)) != 1 {
		return nil, ierrors.New(domainBasic, "Authenticate", ierrors.ErrUnauthorized, fmt.Errorf("bad credentials"))
	}

	subject := p.Subject
	if subject == "" {
		subject = creds.Username
	}
	return &authn.AuthContext{Strategy: "basic", Subject: subject, Scopes: p.Scopes}, nil
}
