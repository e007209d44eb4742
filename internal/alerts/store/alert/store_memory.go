package alert

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"opsgate/internal/alerts"
	id "opsgate/pkg/domain"
	"opsgate/pkg/platform/sentinel"
)

// InMemoryStore keeps alerts in memory for tests and development.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[id.AlertID]*alerts.Alert
}

// New constructs an empty in-memory alert store.
func New() *InMemoryStore {
	return &InMemoryStore{records: make(map[id.AlertID]*alerts.Alert)}
}

func (s *InMemoryStore) Create(_ context.Context, a *alerts.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *a
	s.records[a.ID] = &clone
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, alertID id.AlertID) (*alerts.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[alertID]
	if !ok {
		return nil, fmt.Errorf("alert not found: %w", sentinel.ErrNotFound)
	}
	clone := *record
	return &clone, nil
}

func (s *InMemoryStore) List(_ context.Context, category alerts.Category, status alerts.Status) ([]*alerts.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*alerts.Alert
	for _, record := range s.records {
		if category != "" && record.Category != category {
			continue
		}
		if status != "" && record.Status() != status {
			continue
		}
		clone := *record
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Acknowledge stamps acknowledgedBy/At on an open alert. Any other state is
// an invalid transition: the lifecycle is monotonic.
func (s *InMemoryStore) Acknowledge(_ context.Context, alertID id.AlertID, by id.AdminID, at time.Time) (*alerts.Alert, error) {
	return s.transition(alertID, func(record *alerts.Alert) error {
		if record.Status() != alerts.StatusOpen {
			return fmt.Errorf("alert is %s: %w", record.Status(), sentinel.ErrInvalidState)
		}
		stamped := at
		record.AcknowledgedBy = by
		record.AcknowledgedAt = &stamped
		return nil
	})
}

// Resolve stamps resolvedAt on an open or acknowledged alert.
func (s *InMemoryStore) Resolve(_ context.Context, alertID id.AlertID, at time.Time) (*alerts.Alert, error) {
	return s.transition(alertID, func(record *alerts.Alert) error {
		switch record.Status() {
		case alerts.StatusOpen, alerts.StatusAcknowledged:
			stamped := at
			record.ResolvedAt = &stamped
			return nil
		default:
			return fmt.Errorf("alert is %s: %w", record.Status(), sentinel.ErrInvalidState)
		}
	})
}

// Dismiss stamps dismissedAt on an open or acknowledged alert.
func (s *InMemoryStore) Dismiss(_ context.Context, alertID id.AlertID, at time.Time) (*alerts.Alert, error) {
	return s.transition(alertID, func(record *alerts.Alert) error {
		switch record.Status() {
		case alerts.StatusOpen, alerts.StatusAcknowledged:
			stamped := at
			record.DismissedAt = &stamped
			return nil
		default:
			return fmt.Errorf("alert is %s: %w", record.Status(), sentinel.ErrInvalidState)
		}
	})
}

func (s *InMemoryStore) transition(alertID id.AlertID, mutate func(*alerts.Alert) error) (*alerts.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[alertID]
	if !ok {
		return nil, fmt.Errorf("alert not found: %w", sentinel.ErrNotFound)
	}
	if err := mutate(record); err != nil {
		return nil, err
	}
	clone := *record
	return &clone, nil
}
