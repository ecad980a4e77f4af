package period

import (
	"context"
	"sort"
	"sync"

	"nvi/pkg/platform/sentinel"
)

// MemoryStore is the in-memory Store used in unit tests and local runs.
type MemoryStore struct {
	mu      sync.RWMutex
	periods map[string]Period
}

// NewMemoryStore creates an empty in-memory period store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{periods: make(map[string]Period)}
}

func (s *MemoryStore) Find(_ context.Context, publishingYear string) (Period, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.periods[publishingYear]
	if !ok {
		return Period{}, sentinel.ErrNotFound
	}
	return p, nil
}

func (s *MemoryStore) List(_ context.Context) ([]Period, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Period, 0, len(s.periods))
	for _, p := range s.periods {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PublishingYear < out[j].PublishingYear })
	return out, nil
}

func (s *MemoryStore) Create(_ context.Context, p Period) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.periods[p.PublishingYear]; ok {
		return sentinel.ErrAlreadyExists
	}
	s.periods[p.PublishingYear] = p
	return nil
}

func (s *MemoryStore) Update(_ context.Context, p Period) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.periods[p.PublishingYear]; !ok {
		return sentinel.ErrNotFound
	}
	s.periods[p.PublishingYear] = p
	return nil
}
