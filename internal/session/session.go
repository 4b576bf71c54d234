// Package session tracks per-connection MCP session state: identity,
// initialization lifecycle, authentication binding, and idle eviction,
// the way fyrsmithlabs-contextd's internal/registry tracks tenant/
// project identity (RWMutex-guarded map, github.com/google/uuid for
// opaque ids, CreatedAt bookkeeping) adapted to a process-local,
// non-persisted table of live conversations instead of a
// filesystem-backed registry.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/airsstack/mcp-runtime/internal/authn"
)

// State is the per-session initialization lifecycle, matching the
// ordering invariant that only "initialize" is legal in
// StateUninitialized and no other request is legal until StateActive.
type State int

const (
	StateUninitialized State = iota
	StateAwaitingInitialized
	StateActive
	StateShutdown
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateAwaitingInitialized:
		return "awaiting_initialized"
	case StateActive:
		return "active"
	case StateShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Session is one logical client conversation: a session id, lifecycle
// timestamps, optional auth binding, initialization state, and an
// opaque transport cursor (e.g. the last SSE event id replayed).
type Session struct {
	mu sync.Mutex

	id           string
	createdAt    time.Time
	lastActivity time.Time
	auth         *authn.AuthContext
	state        State
	cursor       string
}

// ID returns the session's immutable identifier.
func (s *Session) ID() string { return s.id }

// CreatedAt returns when the session was created.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Touch updates the session's last-activity timestamp to now.
func (s *Session) Touch(now time.Time) {
	s.mu.Lock()
	s.lastActivity = now
	s.mu.Unlock()
}

// LastActivity returns the last time Touch was called.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// State returns the session's current initialization state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetState transitions the session to state.
func (s *Session) SetState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Auth returns the session's bound authentication context, or nil if
// the session is unauthenticated.
func (s *Session) Auth() *authn.AuthContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.auth
}

// BindAuth attaches auth to the session, replacing any prior binding.
func (s *Session) BindAuth(auth *authn.AuthContext) {
	s.mu.Lock()
	s.auth = auth
	s.mu.Unlock()
}

// Cursor returns the session's transport-specific resumption cursor.
func (s *Session) Cursor() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// SetCursor updates the session's resumption cursor.
func (s *Session) SetCursor(cursor string) {
	s.mu.Lock()
	s.cursor = cursor
	s.mu.Unlock()
}

// newSession constructs a Session with a freshly minted uuid, in
// StateUninitialized, stamped with now for both timestamps.
func newSession(now time.Time) *Session {
	return &Session{
		id:           uuid.NewString(),
		createdAt:    now,
		lastActivity: now,
		state:        StateUninitialized,
	}
}
