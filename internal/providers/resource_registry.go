package providers

import (
	"context"
	"fmt"
	"sync"

	ierrors "github.com/airsstack/mcp-runtime/internal/errors"
	"github.com/airsstack/mcp-runtime/internal/mcpproto"
	"github.com/airsstack/mcp-runtime/internal/notify"
)

// Resource serves the content of a single registered URI.
type Resource interface {
	Read(ctx context.Context) (*mcpproto.ResourcesReadResult, error)
	Definition() mcpproto.ResourceDefinition
}

// ResourceRegistry is a thread-safe, in-memory ResourceProvider,
// generalizing the teacher's resourceRegistry with cursor-based
// pagination, URI templates, and subscribe/unsubscribe notification
// fan-out through a notify.Hub.
type ResourceRegistry struct {
	mu        sync.RWMutex
	resources map[string]Resource
	templates []mcpproto.ResourceTemplate

	hub          *notify.Hub
	subscribable map[string]struct{}
}

// NewResourceRegistry constructs an empty ResourceRegistry. hub may be
// nil, in which case Subscribe records no interest (it still rejects a
// URI not registered as subscribable), Unsubscribe and NotifyUpdated do
// nothing, and Subscribable reports the same as with a hub.
func NewResourceRegistry(hub *notify.Hub) *ResourceRegistry {
	return &ResourceRegistry{
		resources:    make(map[string]Resource),
		hub:          hub,
		subscribable: make(map[string]struct{}),
	}
}

// RegisterResource registers resource under uri. If subscribable is
// true, sessions may call resources/subscribe on this URI and will
// receive notifications/resources/updated when NotifyUpdated is
// called for it.
func (r *ResourceRegistry) RegisterResource(uri string, resource Resource, subscribable bool) error {
	if uri == "" {
		return ierrors.New("providers", "RegisterResource", ierrors.ErrBadRequest, fmt.Errorf("resource uri cannot be empty"))
	}
	if resource == nil {
		return ierrors.New("providers", "RegisterResource", ierrors.ErrBadRequest, fmt.Errorf("resource cannot be nil"))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.resources[uri]; exists {
		return ierrors.New("providers", "RegisterResource", ierrors.ErrBadRequest, ErrResourceAlreadyRegistered).WithContext("resource_uri", uri)
	}
	r.resources[uri] = resource
	if subscribable {
		r.subscribable[uri] = struct{}{}
	}
	return nil
}

// RegisterTemplate adds a URI template to the set returned by
// ListResourceTemplates. Templates describe dynamic resources rather
// than a single fixed URI, so they are not individually registered as
// a Resource.
func (r *ResourceRegistry) RegisterTemplate(tmpl mcpproto.ResourceTemplate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates = append(r.templates, tmpl)
}

// ListResources implements providers.ResourceProvider.
func (r *ResourceRegistry) ListResources(ctx context.Context, cursor string) ([]mcpproto.ResourceDefinition, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	uris := make([]string, 0, len(r.resources))
	for uri := range r.resources {
		uris = append(uris, uri)
	}
	page, next, ok := paginate(uris, cursor)
	if !ok {
		return nil, "", ierrors.New("providers", "ListResources", ierrors.ErrBadRequest, ErrInvalidCursor)
	}

	defs := make([]mcpproto.ResourceDefinition, 0, len(page))
	for _, uri := range page {
		defs = append(defs, r.resources[uri].Definition())
	}
	return defs, next, nil
}

// ListResourceTemplates implements providers.ResourceProvider.
func (r *ResourceRegistry) ListResourceTemplates(ctx context.Context) ([]mcpproto.ResourceTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]mcpproto.ResourceTemplate, len(r.templates))
	copy(out, r.templates)
	return out, nil
}

// ReadResource implements providers.ResourceProvider.
func (r *ResourceRegistry) ReadResource(ctx context.Context, uri string) (*mcpproto.ResourcesReadResult, error) {
	r.mu.RLock()
	resource, exists := r.resources[uri]
	r.mu.RUnlock()

	if !exists {
		return nil, ierrors.New("providers", "ReadResource", ierrors.ErrNotFound, ErrResourceNotFound).WithContext("resource_uri", uri)
	}
	result, err := resource.Read(ctx)
	if err != nil {
		return nil, ierrors.New("providers", "ReadResource", ierrors.ErrInternal, fmt.Errorf("failed to read resource: %w", err)).WithContext("resource_uri", uri)
	}
	return result, nil
}

// Subscribable implements providers.ResourceProvider.
func (r *ResourceRegistry) Subscribable(uri string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.subscribable[uri]
	return ok
}

// Subscribe records sessionID's interest in uri's updates, if uri was
// registered as subscribable and a notify.Hub was provided.
func (r *ResourceRegistry) Subscribe(sessionID, uri string) error {
	if !r.Subscribable(uri) {
		return ierrors.New("providers", "Subscribe", ierrors.ErrBadRequest, fmt.Errorf("resource is not subscribable")).WithContext("resource_uri", uri)
	}
	if r.hub != nil {
		r.hub.Subscribe(sessionID, uri)
	}
	return nil
}

// Unsubscribe removes sessionID's interest in uri.
func (r *ResourceRegistry) Unsubscribe(sessionID, uri string) {
	if r.hub != nil {
		r.hub.Unsubscribe(sessionID, uri)
	}
}

// NotifyUpdated publishes a notifications/resources/updated to every
// session subscribed to uri.
func (r *ResourceRegistry) NotifyUpdated(uri string) {
	if r.hub != nil {
		r.hub.PublishResourceUpdated(uri)
	}
}
