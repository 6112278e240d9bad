package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]*ActiveSession
	byToken map[string]string
	byUser  map[string]map[string]struct{}
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]*ActiveSession),
		byToken: make(map[string]string),
		byUser:  make(map[string]map[string]struct{}),
	}
}

// Insert stores a copy of s if its ID is free.
func (m *MemoryStore) Insert(_ context.Context, s *ActiveSession, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byID[s.ID]; ok {
		return ErrDuplicateID
	}
	m.byID[s.ID] = s.clone()
	m.byToken[s.Token] = s.ID
	ids := m.byUser[s.Username]
	if ids == nil {
		ids = make(map[string]struct{})
		m.byUser[s.Username] = ids
	}
	ids[s.ID] = struct{}{}
	return nil
}

// Get returns a copy of the session with id.
func (m *MemoryStore) Get(_ context.Context, id string) (*ActiveSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.clone(), nil
}

// GetByToken returns a copy of the session issued with token.
func (m *MemoryStore) GetByToken(_ context.Context, token string) (*ActiveSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byToken[token]
	if !ok {
		return nil, ErrNotFound
	}
	s, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.clone(), nil
}

// ListByUser returns copies of the sessions of username.
func (m *MemoryStore) ListByUser(_ context.Context, username string) ([]*ActiveSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := m.byUser[username]
	out := make([]*ActiveSession, 0, len(ids))
	for id := range ids {
		if s, ok := m.byID[id]; ok {
			out = append(out, s.clone())
		}
	}
	return out, nil
}

// Delete removes the session with id and reports whether it was stored.
func (m *MemoryStore) Delete(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	existed := m.deleteLocked(id)
	m.mu.Unlock()
	return existed, nil
}

// Count returns the number of sessions not expired at now.
func (m *MemoryStore) Count(_ context.Context, now time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, s := range m.byID {
		if !s.Expired(now) {
			n++
		}
	}
	return n, nil
}

// Reap removes every session expired at now and returns how many were removed.
func (m *MemoryStore) Reap(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for id, s := range m.byID {
		if s.Expired(now) {
			m.deleteLocked(id)
			n++
		}
	}
	return n
}

// StartReaper runs Reap every interval until the returned stop function is called.
// stop waits for the reaper goroutine to exit and is safe to call more than once.
func (m *MemoryStore) StartReaper(interval time.Duration, now func() time.Time) (stop func()) {
	if interval <= 0 {
		return func() {}
	}
	if now == nil {
		now = time.Now
	}

	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				m.Reap(now())
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
		<-exited
	}
}

func (m *MemoryStore) deleteLocked(id string) bool {
	s, ok := m.byID[id]
	if !ok {
		return false
	}
	delete(m.byID, id)
	if m.byToken[s.Token] == id {
		delete(m.byToken, s.Token)
	}
	if ids := m.byUser[s.Username]; ids != nil {
		delete(ids, id)
		if len(ids) == 0 {
			delete(m.byUser, s.Username)
		}
	}
	return true
}
