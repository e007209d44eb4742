package justification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"opsgate/internal/ledger"
	id "opsgate/pkg/domain"
	"opsgate/pkg/platform/sentinel"
)

// Error contract: store methods return sentinel.ErrNotFound for unknown ids,
// nil on success, and wrapped errors for infrastructure failures.

// InMemoryStore keeps justifications in memory for tests and development.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[id.JustificationID]*ledger.AccessJustification
}

// New constructs an empty in-memory justification store.
func New() *InMemoryStore {
	return &InMemoryStore{records: make(map[id.JustificationID]*ledger.AccessJustification)}
}

func (s *InMemoryStore) Create(_ context.Context, j *ledger.AccessJustification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *j
	s.records[j.ID] = &clone
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, justificationID id.JustificationID) (*ledger.AccessJustification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[justificationID]
	if !ok {
		return nil, fmt.Errorf("justification not found: %w", sentinel.ErrNotFound)
	}
	clone := *record
	return &clone, nil
}

func (s *InMemoryStore) ListByAdminOrg(_ context.Context, adminID id.AdminID, orgID id.OrgID) ([]*ledger.AccessJustification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*ledger.AccessJustification
	for _, record := range s.records {
		if record.AdminID == adminID && record.TargetOrgID == orgID {
			clone := *record
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (s *InMemoryStore) ListByAdmin(_ context.Context, adminID id.AdminID) ([]*ledger.AccessJustification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*ledger.AccessJustification
	for _, record := range s.records {
		if record.AdminID == adminID {
			clone := *record
			out = append(out, &clone)
		}
	}
	return out, nil
}

// MarkRevoked stamps revokedAt/revokeReason unless the record is already
// revoked, in which case the stored record is returned unchanged. The
// idempotence contract lives here so concurrent revokes stay benign.
func (s *InMemoryStore) MarkRevoked(_ context.Context, justificationID id.JustificationID, at time.Time, reason string) (*ledger.AccessJustification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[justificationID]
	if !ok {
		return nil, fmt.Errorf("justification not found: %w", sentinel.ErrNotFound)
	}
	if record.RevokedAt == nil {
		stamped := at
		record.RevokedAt = &stamped
		record.RevokeReason = reason
	}
	clone := *record
	return &clone, nil
}
