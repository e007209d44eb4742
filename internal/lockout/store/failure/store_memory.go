package failure

import (
	"context"
	"sync"
	"time"
)

type record struct {
	count       int
	windowEnds  time.Time
	lockedUntil time.Time
}

// InMemoryStore is the single-process fallback used when Redis is not
// configured, and in tests.
type InMemoryStore struct {
	mu      sync.Mutex
	now     func() time.Time
	records map[string]*record
}

func New() *InMemoryStore {
	return &InMemoryStore{now: time.Now, records: make(map[string]*record)}
}

func (s *InMemoryStore) RecordFailure(_ context.Context, identifier string, window time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	r, ok := s.records[identifier]
	if !ok || now.After(r.windowEnds) {
		r = &record{windowEnds: now.Add(window)}
		s.records[identifier] = r
	}
	r.count++
	return r.count, nil
}

func (s *InMemoryStore) Lock(_ context.Context, identifier string, duration time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[identifier]
	if !ok {
		r = &record{}
		s.records[identifier] = r
	}
	r.lockedUntil = s.now().Add(duration)
	return nil
}

func (s *InMemoryStore) IsLocked(_ context.Context, identifier string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[identifier]
	if !ok {
		return false, nil
	}
	return s.now().Before(r.lockedUntil), nil
}

func (s *InMemoryStore) Clear(_ context.Context, identifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, identifier)
	return nil
}
