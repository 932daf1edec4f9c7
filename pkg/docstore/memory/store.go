// Package memory implements an in-process docstore.Store for tests and local runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dmehra2102/Property-Marketplace/pkg/docstore"
)

type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]any
}

func New() *Store {
	return &Store{collections: make(map[string]map[string]map[string]any)}
}

func (s *Store) Get(_ context.Context, collection, id string) (docstore.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.collections[collection][id]
	if !ok {
		return docstore.Document{}, fmt.Errorf("%s/%s: %w", collection, id, docstore.ErrNotFound)
	}
	return docstore.Document{ID: id, Data: cloneMap(data)}, nil
}

// Query returns matching documents ordered by id.
func (s *Store) Query(_ context.Context, collection string, filters ...docstore.Filter) ([]docstore.Document, error) {
	for _, f := range filters {
		if err := f.Validate(); err != nil {
			return nil, err
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []docstore.Document
	for id, data := range s.collections[collection] {
		if docstore.Matches(data, filters) {
			out = append(out, docstore.Document{ID: id, Data: cloneMap(data)})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) Set(_ context.Context, collection, id string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs, ok := s.collections[collection]
	if !ok {
		docs = make(map[string]map[string]any)
		s.collections[collection] = docs
	}
	data, ok := docs[id]
	if !ok {
		data = make(map[string]any, len(fields))
		docs[id] = data
	}
	for k, v := range fields {
		data[k] = cloneValue(v)
	}
	return nil
}

func (s *Store) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections[collection], id)
	return nil
}

// Len reports how many documents a collection holds.
func (s *Store) Len(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}

func cloneMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneMap(e)
		}
		return out
	default:
		return v
	}
}
