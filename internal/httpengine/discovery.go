package httpengine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// ProtectedResourceMetadata is the RFC 9728 OAuth 2.0 Protected Resource
// Metadata document this server publishes about itself, grounded on the
// teacher's internal/oauth/internal/metadata.Service.
type ProtectedResourceMetadata struct {
	Resource               string   `json:"resource"`
	AuthorizationServers    []string `json:"authorization_servers"`
	ScopesSupported         []string `json:"scopes_supported,omitempty"`
	BearerMethodsSupported  []string `json:"bearer_methods_supported"`
}

// ResourceMetadataService serves spec.md §4.7's RFC 9728 discovery
// document describing this server as a protected resource: which
// authorization servers to use, which scopes it understands.
type ResourceMetadataService struct {
	resource      string
	authServers   []string
	scopes        []string
}

// NewResourceMetadataService constructs a ResourceMetadataService.
// resource is this deployment's public base URL, normalized by
// trimming any trailing slash the way the teacher's normalizeBaseURL
// did.
func NewResourceMetadataService(resource string, authServers, scopes []string) *ResourceMetadataService {
	return &ResourceMetadataService{
		resource:    strings.TrimRight(resource, "/"),
		authServers: authServers,
		scopes:      scopes,
	}
}

func (s *ResourceMetadataService) metadata() ProtectedResourceMetadata {
	return ProtectedResourceMetadata{
		Resource:               s.resource,
		AuthorizationServers:   s.authServers,
		ScopesSupported:        s.scopes,
		BearerMethodsSupported: []string{"header"},
	}
}

// Handler returns the http.HandlerFunc serving
// GET /.well-known/oauth-protected-resource.
func (s *ResourceMetadataService) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(s.metadata()); err != nil {
			slog.Error("failed to encode protected resource metadata", "error", err)
		}
	}
}

// upstreamMirror caches a GET response from an external authorization
// server for ttl and re-serves the cached bytes verbatim. This server
// never mints tokens itself; it only validates Bearer tokens issued
// elsewhere, so "serve /.well-known/oauth-authorization-server and
// /.well-known/jwks.json" means mirroring the configured authorization
// server's own documents at this origin so a client never needs to
// learn the authorization server's address out of band.
type upstreamMirror struct {
	client *http.Client
	url    string
	ttl    time.Duration

	mu       sync.Mutex
	body     []byte
	fetched  time.Time
}

func newUpstreamMirror(url string, ttl time.Duration) *upstreamMirror {
	return &upstreamMirror{
		client: &http.Client{Timeout: 10 * time.Second},
		url:    url,
		ttl:    ttl,
	}
}

func (m *upstreamMirror) fetch(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	if m.body != nil && time.Since(m.fetched) < m.ttl {
		body := m.body
		m.mu.Unlock()
		return body, nil
	}
	m.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.url, nil)
	if err != nil {
		return nil, fmt.Errorf("httpengine: build request for %s: %w", m.url, err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpengine: fetch %s: %w", m.url, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("httpengine: %s returned status %d", m.url, resp.StatusCode)
	}
	var buf strings.Builder
	if _, err := buf.ReadFrom(resp.Body); err != nil { //nolint:staticcheck // strings.Builder implements io.ReaderFrom
		return nil, fmt.Errorf("httpengine: read %s: %w", m.url, err)
	}
	body := []byte(buf.String())

	m.mu.Lock()
	m.body = body
	m.fetched = time.Now()
	m.mu.Unlock()
	return body, nil
}

func (m *upstreamMirror) handler(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := m.fetch(r.Context())
		if err != nil {
			logger.ErrorContext(r.Context(), "discovery mirror fetch failed", "url", m.url, "error", err)
			http.Error(w, `{"error":"discovery_unavailable"}`, http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}
}

// RegisterOAuthDiscovery wires the three OAuth2 discovery endpoints
// spec.md §4.7 and §6 require onto engine: the authorization server's
// own metadata and JWKS documents mirrored at this origin, plus this
// server's own RFC 9728 protected-resource document. issuerBaseURL is
// the configured authorization server origin (cfg.AuthorizationServers[0]);
// it is only ever used to build the two mirrored URLs below, never
// exposed to callers directly.
func RegisterOAuthDiscovery(engine Engine, issuerBaseURL string, resourceMeta *ResourceMetadataService, cacheTTL time.Duration, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	issuerBaseURL = strings.TrimRight(issuerBaseURL, "/")

	authServerMirror := newUpstreamMirror(issuerBaseURL+"/.well-known/oauth-authorization-server", cacheTTL)
	jwksMirror := newUpstreamMirror(issuerBaseURL+"/.well-known/jwks.json", cacheTTL)

	engine.Handle("/.well-known/oauth-authorization-server", []string{http.MethodGet}, authServerMirror.handler(logger))
	engine.Handle("/.well-known/jwks.json", []string{http.MethodGet}, jwksMirror.handler(logger))
	if resourceMeta != nil {
		engine.Handle("/.well-known/oauth-protected-resource", []string{http.MethodGet}, resourceMeta.Handler())
	}
}
