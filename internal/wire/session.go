package wire

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session holds per-connection preview state.
type Session struct {
	ID           string    `json:"id"`
	Renders      int       `json:"renders"`
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
}

// Touch records one handled request.
func (s *Session) Touch() {
	s.Renders++
	s.LastActiveAt = time.Now()
}

// Sessions tracks open preview connections.
type Sessions struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewSessions() *Sessions {
	return &Sessions{sessions: make(map[string]*Session)}
}

// Create registers a new session and returns it.
func (m *Sessions) Create() *Session {
	now := time.Now()
	s := &Session{ID: uuid.New().String(), CreatedAt: now, LastActiveAt: now}
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Remove deletes a session.
func (m *Sessions) Remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Len returns the number of open sessions.
func (m *Sessions) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
