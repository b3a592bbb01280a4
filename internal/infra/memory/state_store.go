package memory

import (
	"context"
	"sync"

	"capa-grader/internal/domain"
)

// StateStore keeps attempt state in process memory. Maps are deep-copied on
// both sides so callers never share a CorrectMap with the store.
type StateStore struct {
	mu sync.RWMutex
	m  map[stateKey]*domain.CorrectMap
}

type stateKey struct {
	studentID string
	problemID string
}

func NewStateStore() *StateStore {
	return &StateStore{m: make(map[stateKey]*domain.CorrectMap)}
}

func (s *StateStore) Get(_ context.Context, studentID, problemID string) (*domain.CorrectMap, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cm, ok := s.m[stateKey{studentID, problemID}]
	if !ok {
		return nil, domain.ErrStateNotFound
	}
	return cm.Clone(), nil
}

func (s *StateStore) Put(_ context.Context, studentID, problemID string, cm *domain.CorrectMap) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[stateKey{studentID, problemID}] = cm.Clone()
	return nil
}
