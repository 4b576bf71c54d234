// Package jwks fetches and caches JSON Web Key Sets from OAuth 2.1
// authorization servers for Bearer token signature verification.
package jwks

import (
	"context"
	"crypto/ecdsa"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sync"
	"time"

	ierrors "github.com/airsstack/mcp-runtime/internal/errors"
)

const domainJWKS = "jwks"

// AuthorizationServerMetadata is the minimal RFC 8414 metadata document
// needed to discover an authorization server's JWKS endpoint.
type AuthorizationServerMetadata struct {
	Issuer  string `json:"issuer"`
	JWKSURI string `json:"jwks_uri"`
}

// Set is a JSON Web Key Set.
type Set struct {
	Keys []Key `json:"keys"`
}

// Key is a single JSON Web Key, RSA or EC.
type Key struct {
	KeyType   string `json:"kty"`
	Use       string `json:"use,omitempty"`
	KeyID     string `json:"kid"`
	Algorithm string `json:"alg,omitempty"`
	N         string `json:"n,omitempty"`
	E         string `json:"e,omitempty"`
	Curve     string `json:"crv,omitempty"`
	X         string `json:"x,omitempty"`
	Y         string `json:"y,omitempty"`
}

// Client fetches and caches JWKS keys from one or more authorization
// servers, resolving the jwks_uri for each via RFC 8414 discovery.
type Client struct {
	httpClient   *http.Client
	cache        *Cache
	serverURLs   []string
	mu           sync.RWMutex
	jwksURICache map[string]string
}

// NewClient constructs a Client discovering keys from serverURLs, caching
// resolved keys for cacheTTL.
func NewClient(serverURLs []string, cacheTTL time.Duration) *Client {
	return &Client{
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		cache:        NewCache(cacheTTL),
		serverURLs:   serverURLs,
		jwksURICache: make(map[string]string),
	}
}

// GetKey implements authn/oauth2's JWKSClient contract: returns the
// public key for keyID, fetching and caching from the configured servers
// on a cache miss.
func (c *Client) GetKey(ctx context.Context, keyID string) (any, error) {
	if keyID == "" {
		return nil, ierrors.New(domainJWKS, "GetKey", ierrors.ErrUnauthorized, fmt.Errorf("key id is required"))
	}

	if key := c.cache.Get(keyID); key != nil {
		return key, nil
	}

	var lastErr error
	for _, serverURL := range c.serverURLs {
		key, err := c.fetchAndCacheKey(ctx, serverURL, keyID)
		if err != nil {
			lastErr = err
			continue
		}
		if key != nil {
			return key, nil
		}
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ierrors.New(domainJWKS, "GetKey", ierrors.ErrUnauthorized, fmt.Errorf("key not found: %s", keyID))
}

// RefreshKeys clears all caches and re-fetches from every configured
// server. GetKey does not call it: a key id missing from the cache is
// fetched by GetKey directly.
func (c *Client) RefreshKeys(ctx context.Context) error {
	c.cache.Clear()
	c.mu.Lock()
	c.jwksURICache = make(map[string]string)
	c.mu.Unlock()

	var lastErr error
	for _, serverURL := range c.serverURLs {
		if err := c.refreshFromServer(ctx, serverURL); err != nil {
			lastErr = err
			continue
		}
	}
	return lastErr
}

func (c *Client) fetchAndCacheKey(ctx context.Context, serverURL, keyID string) (any, error) {
	jwksURI, err := c.getJWKSURI(ctx, serverURL)
	if err != nil {
		return nil, err
	}
	set, err := c.fetchJWKS(ctx, jwksURI)
	if err != nil {
		return nil, err
	}

	var found any
	for _, jwk := range set.Keys {
		if jwk.KeyID == "" {
			continue
		}
		key, err := jwkToPublicKey(&jwk)
		if err != nil {
			continue
		}
		c.cache.Set(jwk.KeyID, key)
		if jwk.KeyID == keyID {
			found = key
		}
	}
	return found, nil
}

func (c *Client) refreshFromServer(ctx context.Context, serverURL string) error {
	jwksURI, err := c.getJWKSURI(ctx, serverURL)
	if err != nil {
		return err
	}
	set, err := c.fetchJWKS(ctx, jwksURI)
	if err != nil {
		return err
	}
	for _, jwk := range set.Keys {
		if jwk.KeyID == "" {
			continue
		}
		if key, err := jwkToPublicKey(&jwk); err == nil {
			c.cache.Set(jwk.KeyID, key)
		}
	}
	return nil
}

func (c *Client) getJWKSURI(ctx context.Context, serverURL string) (string, error) {
	c.mu.RLock()
	cached, ok := c.jwksURICache[serverURL]
	c.mu.RUnlock()
	if ok {
		return cached, nil
	}

	metadataURL := serverURL + "/.well-known/oauth-authorization-server"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, metadataURL, nil)
	if err != nil {
		return "", ierrors.New(domainJWKS, "getJWKSURI", ierrors.ErrInternal, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", ierrors.New(domainJWKS, "getJWKSURI", ierrors.ErrInternal, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", ierrors.New(domainJWKS, "getJWKSURI", ierrors.ErrInternal,
			fmt.Errorf("metadata endpoint returned status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", ierrors.New(domainJWKS, "getJWKSURI", ierrors.ErrInternal, err)
	}

	var metadata AuthorizationServerMetadata
	if err := json.Unmarshal(body, &metadata); err != nil {
		return "", ierrors.New(domainJWKS, "getJWKSURI", ierrors.ErrInternal, err)
	}
	if metadata.JWKSURI == "" {
		return "", ierrors.New(domainJWKS, "getJWKSURI", ierrors.ErrInternal,
			fmt.Errorf("authorization server metadata missing jwks_uri"))
	}

	c.mu.Lock()
	c.jwksURICache[serverURL] = metadata.JWKSURI
	c.mu.Unlock()
	return metadata.JWKSURI, nil
}

func (c *Client) fetchJWKS(ctx context.Context, jwksURI string) (*Set, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jwksURI, nil)
	if err != nil {
		return nil, ierrors.New(domainJWKS, "fetchJWKS", ierrors.ErrInternal, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, ierrors.New(domainJWKS, "fetchJWKS", ierrors.ErrInternal, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, ierrors.New(domainJWKS, "fetchJWKS", ierrors.ErrInternal,
			fmt.Errorf("jwks endpoint returned status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ierrors.New(domainJWKS, "fetchJWKS", ierrors.ErrInternal, err)
	}

	var set Set
	if err := json.Unmarshal(body, &set); err != nil {
		return nil, ierrors.New(domainJWKS, "fetchJWKS", ierrors.ErrInternal, err)
	}
	return &set, nil
}

func jwkToPublicKey(jwk *Key) (any, error) {
	switch jwk.KeyType {
	case "RSA":
		return jwkToRSAPublicKey(jwk)
	case "EC":
		return jwkToECDSAPublicKey(jwk)
	default:
		return nil, fmt.Errorf("unsupported key type: %s", jwk.KeyType)
	}
}

func jwkToRSAPublicKey(jwk *Key) (*rsa.PublicKey, error) {
	if jwk.N == "" || jwk.E == "" {
		return nil, fmt.Errorf("missing RSA key parameters")
	}
	nBytes, err := base64URLDecode(jwk.N)
	if err != nil {
		return nil, fmt.Errorf("failed to decode modulus: %w", err)
	}
	eBytes, err := base64URLDecode(jwk.E)
	if err != nil {
		return nil, fmt.Errorf("failed to decode exponent: %w", err)
	}
	n := new(big.Int).SetBytes(nBytes)
	e := new(big.Int).SetBytes(eBytes)
	return &rsa.PublicKey{N: n, E: int(e.Int64())}, nil
}

func jwkToECDSAPublicKey(jwk *Key) (*ecdsa.PublicKey, error) {
	if jwk.X == "" || jwk.Y == "" || jwk.Curve == "" {
		return nil, fmt.Errorf("missing EC key parameters")
	}
	curve, err := curveFor(jwk.Curve)
	if err != nil {
		return nil, err
	}
	xBytes, err := base64URLDecode(jwk.X)
	if err != nil {
		return nil, fmt.Errorf("failed to decode x coordinate: %w", err)
	}
	yBytes, err := base64URLDecode(jwk.Y)
	if err != nil {
		return nil, fmt.Errorf("failed to decode y coordinate: %w", err)
	}
	return &ecdsa.PublicKey{
		Curve: curve,
		X:     new(big.Int).SetBytes(xBytes),
		Y:     new(big.Int).SetBytes(yBytes),
	}, nil
}
