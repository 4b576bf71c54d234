package authn_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airsstack/mcp-runtime/internal/authn"
)

type stubStrategy struct {
	scheme string
	result *authn.AuthContext
	err    error
}

func (s *stubStrategy) Name() string { return s.scheme }

func (s *stubStrategy) Authenticate(ctx context.Context, creds authn.Credentials) (*authn.AuthContext, error) {
	if creds.Scheme != s.scheme {
		return nil, authn.ErrSchemeNotHandled
	}
	return s.result, s.err
}

func TestManager_TriesStrategiesInOrder(t *testing.T) {
	first := &stubStrategy{scheme: "bearer", result: &authn.AuthContext{Subject: "first"}}
	second := &stubStrategy{scheme: "apikey", result: &authn.AuthContext{Subject: "second"}}

	m := authn.NewManager(first, second)
	ac, err := m.Authenticate(context.Background(), authn.Credentials{Scheme: "apikey"})
	require.NoError(t, err)
	assert.Equal(t, "second", ac.Subject)
}

func TestManager_NoStrategyHandlesScheme(t *testing.T) {
	m := authn.NewManager(&stubStrategy{scheme: "bearer", result: &authn.AuthContext{}})
	_, err := m.Authenticate(context.Background(), authn.Credentials{Scheme: "basic"})
	assert.ErrorIs(t, err, authn.ErrNoneConfigured)
}

func TestManager_NoStrategiesConfigured(t *testing.T) {
	m := authn.NewManager()
	_, err := m.Authenticate(context.Background(), authn.Credentials{Scheme: "bearer"})
	assert.ErrorIs(t, err, authn.ErrNoneConfigured)
}
