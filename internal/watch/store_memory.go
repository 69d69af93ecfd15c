package watch

import (
	"context"
	"sort"
	"sync"

	"drugwatch/pkg/platform/sentinel"
)

// InMemoryStore is the default single-instance store.
type InMemoryStore struct {
	mu      sync.RWMutex
	watches map[string]Watch
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{watches: make(map[string]Watch)}
}

func (s *InMemoryStore) Create(_ context.Context, w Watch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.watches[w.ID]; ok {
		return sentinel.ErrConflict
	}
	s.watches[w.ID] = w
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id string) (Watch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.watches[id]
	if !ok {
		return Watch{}, sentinel.ErrNotFound
	}
	return w, nil
}

func (s *InMemoryStore) ListByOwner(_ context.Context, owner string) ([]Watch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Watch, 0)
	for _, w := range s.watches {
		if w.Owner == owner {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) Update(_ context.Context, w Watch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.watches[w.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.watches[w.ID] = w
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.watches[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.watches, id)
	return nil
}
