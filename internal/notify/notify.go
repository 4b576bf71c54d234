// Package notify fans server-initiated MCP notifications out to
// subscribed sessions, backed by github.com/cskr/pubsub the way
// ruaan-deysel-unraid-management-agent's collectors fan sensor updates
// out to its HTTP/SSE layer. A topic here is a session id; resource
// subscribe/unsubscribe is layered on top as per-session interest sets
// so a single resource update publishes only to the sessions that asked
// for it.
package notify

import (
	"sync"

	"github.com/cskr/pubsub"

	"github.com/airsstack/mcp-runtime/internal/mcpproto"
)

// bufferPerSession bounds how many pending notifications a slow
// consumer can accumulate before cskr/pubsub's non-blocking Pub starts
// silently dropping further messages to that session.
const bufferPerSession = 64

// Hub fans notifications out to sessions and tracks which sessions are
// subscribed to which resource URIs.
type Hub struct {
	bus *pubsub.PubSub

	mu            sync.Mutex
	subscriptions map[string]map[string]struct{} // sessionID -> set of URIs
}

// NewHub constructs an empty Hub.
func NewHub() *Hub {
	return &Hub{
		bus:           pubsub.New(bufferPerSession),
		subscriptions: make(map[string]map[string]struct{}),
	}
}

// Notification is a server-initiated message delivered to a session's
// Listen channel. Method is the MCP notification method name; Params is
// the already-marshaled payload (mcpproto type, not yet JSON-encoded).
type Notification struct {
	Method string
	Params any
}

// Listen subscribes to notifications addressed to sessionID. The
// returned channel is closed when Close is called with it.
func (h *Hub) Listen(sessionID string) chan any {
	return h.bus.Sub(sessionID)
}

// Close unsubscribes ch (the exact channel value returned by Listen)
// from sessionID's topic and closes it, forgetting its resource
// subscriptions. cskr/pubsub requires the original channel value to
// unsubscribe, so callers must retain what Listen returned.
func (h *Hub) Close(sessionID string, ch chan any) {
	h.mu.Lock()
	delete(h.subscriptions, sessionID)
	h.mu.Unlock()
	h.bus.Unsub(ch, sessionID)
}

// Notify publishes n to sessionID's notification channel.
func (h *Hub) Notify(sessionID string, n Notification) {
	h.bus.Pub(any(n), sessionID)
}

// Publish fans an arbitrary transport-owned payload out to sessionID's
// channel, used by internal/httptransport to deliver a server-initiated
// jsonrpc.Message (a notification built outside this package, or a
// response produced asynchronously after HandleMessage already
// returned) through the same per-session fan-out Notify uses for
// resource-update notifications.
func (h *Hub) Publish(sessionID string, payload any) {
	h.bus.Pub(payload, sessionID)
}

// Subscribe records that sessionID is interested in resource updates
// for uri.
func (h *Hub) Subscribe(sessionID, uri string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subscriptions[sessionID]
	if !ok {
		set = make(map[string]struct{})
		h.subscriptions[sessionID] = set
	}
	set[uri] = struct{}{}
}

// ForgetSession drops every resource-subscription interest recorded for
// sessionID, without touching any Listen channel. Callers that already
// hold the channel returned by Listen must still call Close with it to
// unsubscribe from the pubsub bus; ForgetSession is for the case where
// the session is gone (HandleClose) and no caller is holding that
// channel open, e.g. the stdio transport, which never calls Listen at
// all, or an HTTP session whose own stream loop has already torn itself
// down.
func (h *Hub) ForgetSession(sessionID string) {
	h.mu.Lock()
	delete(h.subscriptions, sessionID)
	h.mu.Unlock()
}

// Unsubscribe removes sessionID's interest in uri.
func (h *Hub) Unsubscribe(sessionID, uri string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subscriptions[sessionID]; ok {
		delete(set, uri)
	}
}

// PublishResourceUpdated notifies every session subscribed to uri.
func (h *Hub) PublishResourceUpdated(uri string) {
	h.mu.Lock()
	interested := make([]string, 0)
	for sessionID, set := range h.subscriptions {
		if _, ok := set[uri]; ok {
			interested = append(interested, sessionID)
		}
	}
	h.mu.Unlock()

	params := mcpproto.ResourceUpdatedNotificationParams{URI: uri}
	for _, sessionID := range interested {
		h.Notify(sessionID, Notification{Method: mcpproto.NotificationResourcesUpdated, Params: params})
	}
}
