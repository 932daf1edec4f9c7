// Package memory implements an in-memory blob.Store for tests.
package memory

import (
	"context"
	"sync"
)

type Store struct {
	mu   sync.RWMutex
	objs map[string][]byte
}

func New() *Store { return &Store{objs: make(map[string][]byte)} }

// Add stores an object, replacing any previous one under key.
func (s *Store) Add(key string, data []byte) {
	s.mu.Lock()
	s.objs[key] = append([]byte(nil), data...)
	s.mu.Unlock()
}

func (s *Store) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objs[key]
	return ok
}

func (s *Store) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objs[key]
	delete(s.objs, key)
	return ok, nil
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objs)
}
