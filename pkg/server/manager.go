package server

import (
	"errors"
	"sync"
)

// ErrTooManySessions is returned when the session cap is reached.
var ErrTooManySessions = errors.New("server: session limit reached")

// Manager tracks live sessions and enforces the session cap.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	max      int
}

// NewManager creates a manager capping concurrent sessions at max.
func NewManager(max int) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		max:      max,
	}
}

// Add registers a session, failing when the cap is reached.
func (m *Manager) Add(s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.max > 0 && len(m.sessions) >= m.max {
		return ErrTooManySessions
	}
	m.sessions[s.ID] = s
	return nil
}

// Remove drops a session from tracking.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Get returns a session by id.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// CloseAll closes every session, used during shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
