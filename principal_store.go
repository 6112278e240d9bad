package passport

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryPrincipalStore is a PrincipalStore backed by a map. It is used by tests and by the
// CLI when no database is configured.
type MemoryPrincipalStore struct {
	mu         sync.RWMutex
	principals map[string]Principal
}

// NewMemoryPrincipalStore returns a store holding principals.
func NewMemoryPrincipalStore(principals ...Principal) *MemoryPrincipalStore {
	s := &MemoryPrincipalStore{principals: make(map[string]Principal, len(principals))}
	for _, p := range principals {
		s.Put(p)
	}
	return s
}

// Put adds or replaces p. Usernames are stored lowercase.
func (s *MemoryPrincipalStore) Put(p Principal) {
	p.Username = normalizeUsername(p.Username)
	p.Roles = append([]string(nil), p.Roles...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.principals[p.Username] = p
}

// SetStatus changes the status of username. It reports false for unknown usernames.
func (s *MemoryPrincipalStore) SetStatus(username string, status Status) bool {
	username = normalizeUsername(username)

	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.principals[username]
	if !ok {
		return false
	}
	p.Status = status
	s.principals[username] = p
	return true
}

func (s *MemoryPrincipalStore) FindByUsername(_ context.Context, username string) (*Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.principals[normalizeUsername(username)]
	if !ok {
		return nil, ErrPrincipalNotFound
	}
	p.Roles = append([]string(nil), p.Roles...)
	return &p, nil
}

func (s *MemoryPrincipalStore) TouchLastLogin(_ context.Context, username string, at time.Time) error {
	username = normalizeUsername(username)

	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.principals[username]
	if !ok {
		return ErrPrincipalNotFound
	}
	p.LastLoginAt = at
	s.principals[username] = p
	return nil
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
