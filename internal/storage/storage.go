package storage

import (
	"log/slog"
	"sync"
	"time"

	"github.com/lehigh-university-libraries/passport/internal/session"
)

// SessionStore holds one controller per browser session.
type SessionStore struct {
	sessions map[string]*session.Controller
	mu       sync.RWMutex
}

func New() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*session.Controller),
	}
}

func (s *SessionStore) Get(sessionID string) (*session.Controller, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, exists := s.sessions[sessionID]
	return c, exists
}

// Set stores c under sessionID. A controller it replaces is closed.
func (s *SessionStore) Set(sessionID string, c *session.Controller) {
	s.mu.Lock()
	old := s.sessions[sessionID]
	s.sessions[sessionID] = c
	s.mu.Unlock()

	if old != nil && old != c {
		old.Close()
	}
}

func (s *SessionStore) GetAll() map[string]*session.Controller {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]*session.Controller, len(s.sessions))
	for k, v := range s.sessions {
		result[k] = v
	}
	return result
}

func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Delete removes the session and cancels its in-flight edit.
func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	c, exists := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	if exists {
		c.Close()
	}
}

// Sweep deletes sessions idle for longer than ttl and returns how many were
// removed. A zero ttl keeps everything.
func (s *SessionStore) Sweep(ttl time.Duration, now time.Time) int {
	if ttl <= 0 {
		return 0
	}

	var expired []*session.Controller
	s.mu.Lock()
	for id, c := range s.sessions {
		if now.Sub(c.LastActive()) > ttl {
			expired = append(expired, c)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, c := range expired {
		c.Close()
		slog.Info("Session expired", "session_id", c.ID())
	}
	return len(expired)
}

// CloseAll removes every session, cancelling in-flight edits.
func (s *SessionStore) CloseAll() {
	s.mu.Lock()
	all := s.sessions
	s.sessions = make(map[string]*session.Controller)
	s.mu.Unlock()

	for _, c := range all {
		c.Close()
	}
}
