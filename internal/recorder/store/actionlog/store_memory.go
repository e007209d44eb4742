package actionlog

import (
	"context"
	"sync"

	"opsgate/internal/recorder"
	id "opsgate/pkg/domain"
)

// InMemoryStore keeps action-log entries in memory for tests and development.
// Append-only: no update or delete methods exist.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []*recorder.ActionLogEntry
}

// New constructs an empty in-memory action log.
func New() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, entry *recorder.ActionLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *entry
	s.entries = append(s.entries, &clone)
	return nil
}

func (s *InMemoryStore) ListBySession(_ context.Context, sessionID id.SessionID) ([]*recorder.ActionLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*recorder.ActionLogEntry
	for _, entry := range s.entries {
		if entry.SessionID == sessionID {
			clone := *entry
			out = append(out, &clone)
		}
	}
	return out, nil
}
