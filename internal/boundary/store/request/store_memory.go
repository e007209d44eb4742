package request

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"opsgate/internal/boundary"
	id "opsgate/pkg/domain"
	"opsgate/pkg/platform/sentinel"
)

// InMemoryStore keeps boundary requests in memory for tests and development.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[id.BoundaryRequestID]*boundary.Request
}

// New constructs an empty in-memory boundary request store.
func New() *InMemoryStore {
	return &InMemoryStore{records: make(map[id.BoundaryRequestID]*boundary.Request)}
}

func (s *InMemoryStore) Create(_ context.Context, r *boundary.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *r
	s.records[r.ID] = &clone
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, requestID id.BoundaryRequestID) (*boundary.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[requestID]
	if !ok {
		return nil, fmt.Errorf("boundary request not found: %w", sentinel.ErrNotFound)
	}
	clone := *record
	return &clone, nil
}

func (s *InMemoryStore) ListPending(_ context.Context) ([]*boundary.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*boundary.Request
	for _, record := range s.records {
		if record.Pending() {
			clone := *record
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Decide stamps the terminal outcome on a pending request. Re-deciding an
// already-decided request is an invalid transition.
func (s *InMemoryStore) Decide(_ context.Context, requestID id.BoundaryRequestID, approved bool, by id.AdminID, at time.Time, reason string) (*boundary.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[requestID]
	if !ok {
		return nil, fmt.Errorf("boundary request not found: %w", sentinel.ErrNotFound)
	}
	if !record.Pending() {
		return nil, fmt.Errorf("boundary request already decided: %w", sentinel.ErrInvalidState)
	}
	decision := approved
	stamped := at
	record.Approved = &decision
	record.ApprovedBy = by
	record.DecidedAt = &stamped
	record.Reason = reason
	clone := *record
	return &clone, nil
}
