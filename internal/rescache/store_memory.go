package rescache

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"drugwatch/pkg/platform/sentinel"
)

// MemoryStore keeps entries in process memory. It favors clarity over
// performance; eviction scans are fine at the configured entry counts.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
	cfg     Config

	now func() time.Time
}

func NewMemoryStore(cfg Config) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]Entry),
		cfg:     cfg,
		now:     time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return Entry{}, sentinel.ErrNotFound
	}
	if s.now().Sub(e.FetchedAt) >= s.cfg.TTL {
		delete(s.entries, key)
		return Entry{}, sentinel.ErrNotFound
	}
	return e, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, data json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Make room before writing: drop the oldest-by-fetchedAt entries first.
	if s.cfg.MaxEntries > 0 && len(s.entries) >= s.cfg.MaxEntries {
		if _, exists := s.entries[key]; !exists {
			s.evictOldest(len(s.entries) - s.cfg.MaxEntries + 1)
		}
	}

	s.entries[key] = Entry{Data: data, FetchedAt: s.now(), Key: key}
	return nil
}

func (s *MemoryStore) Invalidate(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]Entry)
	return nil
}

// Len reports the current entry count.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// evictOldest removes n entries ordered by FetchedAt. Caller holds the lock.
func (s *MemoryStore) evictOldest(n int) {
	type aged struct {
		key string
		at  time.Time
	}
	all := make([]aged, 0, len(s.entries))
	for k, e := range s.entries {
		all = append(all, aged{key: k, at: e.FetchedAt})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].at.Before(all[j].at) })
	for i := 0; i < n && i < len(all); i++ {
		delete(s.entries, all[i].key)
	}
}
