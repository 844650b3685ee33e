package store

import (
	"context"
	"slices"
	"sync"

	"github.com/matzehuels/flowdiagram/pkg/flow"
)

// MemoryStore keeps flows in a map. It is safe for concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	flows map[string]*flow.Document
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{flows: make(map[string]*flow.Document)}
}

func (s *MemoryStore) Get(_ context.Context, name string) (*flow.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.flows[name]
	if !ok {
		return nil, notFound(name)
	}
	return doc.Clone(), nil
}

func (s *MemoryStore) Put(_ context.Context, doc *flow.Document) error {
	if err := ValidateName(doc.Name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flows[doc.Name] = doc.Clone()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.flows, name)
	return nil
}

func (s *MemoryStore) List(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.flows))
	for name := range s.flows {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
