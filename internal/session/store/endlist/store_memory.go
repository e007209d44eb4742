package endlist

import (
	"context"
	"sync"
	"time"

	id "opsgate/pkg/domain"
)

// InMemoryList is the single-instance ended-session list used in tests and
// development. Entries expire lazily on read.
type InMemoryList struct {
	mu    sync.RWMutex
	ended map[id.SessionID]time.Time
}

// NewMemory constructs an empty in-memory ended-session list.
func NewMemory() *InMemoryList {
	return &InMemoryList{ended: make(map[id.SessionID]time.Time)}
}

func (l *InMemoryList) MarkEnded(_ context.Context, sessionID id.SessionID, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ended[sessionID] = time.Now().Add(ttl)
	return nil
}

func (l *InMemoryList) IsEnded(_ context.Context, sessionID id.SessionID) (bool, error) {
	l.mu.RLock()
	deadline, ok := l.ended[sessionID]
	l.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if time.Now().After(deadline) {
		return !l.expire(sessionID), nil
	}
	return true, nil
}

// expire deletes a lapsed entry. The deadline is re-checked under the write
// lock: a MarkEnded racing with the lock upgrade may have refreshed the entry,
// which must then survive. Reports whether the entry is gone.
func (l *InMemoryList) expire(sessionID id.SessionID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	deadline, ok := l.ended[sessionID]
	if !ok {
		return true
	}
	if time.Now().After(deadline) {
		delete(l.ended, sessionID)
		return true
	}
	return false
}
