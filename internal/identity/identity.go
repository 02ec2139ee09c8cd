// Package identity carries the current student identity into the study core.
// Authentication itself happens upstream; this package only answers "who is
// acting right now".
package identity

import "sync"

// Identity is an authenticated student.
type Identity struct {
	StudentID   string
	DisplayName string
}

// Provider reports the current identity, if any.
type Provider interface {
	Current() (Identity, bool)
}

// Static always reports the same identity. An empty StudentID means signed out.
type Static Identity

func (s Static) Current() (Identity, bool) {
	if s.StudentID == "" {
		return Identity{}, false
	}
	return Identity(s), true
}

// Session is a mutable provider driven by login/logout callbacks.
type Session struct {
	mu      sync.RWMutex
	current *Identity
}

// NewSession returns a signed-out session.
func NewSession() *Session {
	return &Session{}
}

// Login sets the current identity.
func (s *Session) Login(id Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id.StudentID == "" {
		s.current = nil
		return
	}
	s.current = &id
}

// Logout clears the current identity.
func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
}

func (s *Session) Current() (Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return Identity{}, false
	}
	return *s.current, true
}
