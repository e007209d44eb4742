package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	sessions "opsgate/internal/session"
	id "opsgate/pkg/domain"
	"opsgate/pkg/platform/sentinel"
)

// InMemoryStore keeps impersonation sessions in memory for tests and development.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[id.SessionID]*sessions.ImpersonationSession
}

// New constructs an empty in-memory session store.
func New() *InMemoryStore {
	return &InMemoryStore{records: make(map[id.SessionID]*sessions.ImpersonationSession)}
}

func (s *InMemoryStore) Create(_ context.Context, sess *sessions.ImpersonationSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *sess
	s.records[sess.ID] = &clone
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, sessionID id.SessionID) (*sessions.ImpersonationSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[sessionID]
	if !ok {
		return nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	clone := *record
	return &clone, nil
}

func (s *InMemoryStore) ListByAdmin(_ context.Context, adminID id.AdminID) ([]*sessions.ImpersonationSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*sessions.ImpersonationSession
	for _, record := range s.records {
		if record.AdminID == adminID {
			clone := *record
			out = append(out, &clone)
		}
	}
	return out, nil
}

// MarkEnded stamps the terminal state once; repeat calls return the stored
// record with the original endedAt untouched.
func (s *InMemoryStore) MarkEnded(_ context.Context, sessionID id.SessionID, at time.Time, reason string) (*sessions.ImpersonationSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[sessionID]
	if !ok {
		return nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	if record.EndedAt == nil {
		stamped := at
		record.EndedAt = &stamped
		record.EndReason = reason
	}
	clone := *record
	return &clone, nil
}
