package session

import (
	"errors"
	"sync"
	"time"
)

// ErrTableFull is returned by Create when maxSessions is already
// reached; existing sessions are unaffected.
var ErrTableFull = errors.New("session: table full")

// ErrNotFound is returned when a session id has no corresponding
// entry, either because it was never created or because it was
// evicted.
var ErrNotFound = errors.New("session: not found")

// Manager is the shared, writer-exclusive-on-insert/evict,
// many-reader-on-lookup session table described by the spec's
// concurrency model.
type Manager struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	maxSessions int
	idleTimeout time.Duration
}

// NewManager constructs a Manager bounding the table at maxSessions
// entries (0 means unbounded) and evicting sessions idle longer than
// idleTimeout (0 means never evicted by Sweep).
func NewManager(maxSessions int, idleTimeout time.Duration) *Manager {
	return &Manager{
		sessions:    make(map[string]*Session),
		maxSessions: maxSessions,
		idleTimeout: idleTimeout,
	}
}

// Create mints a new Session and inserts it into the table, stamped
// with now. Returns ErrTableFull if maxSessions is already reached.
func (m *Manager) Create(now time.Time) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.maxSessions > 0 && len(m.sessions) >= m.maxSessions {
		return nil, ErrTableFull
	}
	s := newSession(now)
	m.sessions[s.id] = s
	return s, nil
}

// Get looks up a session by id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// GetOrCreate returns the session for id if it already exists;
// otherwise it creates and inserts a new one under that exact id
// (used by the stdio transport's single fixed session id, where the
// server never mints an id itself).
func (m *Manager) GetOrCreate(id string, now time.Time) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	if m.maxSessions > 0 && len(m.sessions) >= m.maxSessions {
		return nil, ErrTableFull
	}
	s := &Session{id: id, createdAt: now, lastActivity: now, state: StateUninitialized}
	m.sessions[id] = s
	return s, nil
}

// Evict removes a session from the table unconditionally (explicit
// close).
func (m *Manager) Evict(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Len reports the current number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep evicts every session whose last activity is older than
// idleTimeout as of now, returning the number evicted. A zero
// idleTimeout disables sweeping.
func (m *Manager) Sweep(now time.Time) int {
	if m.idleTimeout <= 0 {
		return 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for id, s := range m.sessions {
		if now.Sub(s.LastActivity()) > m.idleTimeout {
			delete(m.sessions, id)
			evicted++
		}
	}
	return evicted
}
