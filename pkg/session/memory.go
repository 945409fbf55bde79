package session

import (
	"context"
	"sync"
)

// MemoryStore keeps the user → session mapping in process memory. Fine for
// development and single-instance deployments; entries live until restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]string)}
}

func (s *MemoryStore) Get(_ context.Context, userID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[userID], nil
}

func (s *MemoryStore) Set(_ context.Context, userID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[userID] = sessionID
	return nil
}
