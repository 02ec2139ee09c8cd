package profile

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore keeps profiles in memory.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]Profile
	defaults Profile
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]Profile), defaults: Default()}
}

// WithDefaults sets the profile new students start from.
func (s *MemoryStore) WithDefaults(p Profile) *MemoryStore {
	s.defaults = p
	return s
}

func (s *MemoryStore) Defaults() Profile {
	return s.defaults
}

func (s *MemoryStore) Read(_ context.Context, studentID string) (Profile, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[studentID]
	return p, ok, nil
}

func (s *MemoryStore) Write(_ context.Context, studentID string, patch Patch) error {
	if studentID == "" {
		return fmt.Errorf("student_id is required")
	}
	if err := patch.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	base, ok := s.profiles[studentID]
	if !ok {
		base = s.defaults
	}
	s.profiles[studentID] = patch.Apply(base)
	return nil
}
