package alerts

import (
	"context"
	"sync"
)

// Stream fans out alerts to all live subscribers (SSE clients on operator
// consoles). Delivery is at-most-once: a slow subscriber's copy is dropped
// rather than blocking the publisher, and a missed push is never retried -
// the persisted record remains the source of truth.
type Stream struct {
	mu   sync.RWMutex
	subs map[int]*subscriber
	next int
}

type subscriber struct {
	ch         chan Alert
	categories map[Category]struct{}
}

// NewStream initialises an empty stream.
func NewStream() *Stream {
	return &Stream{subs: make(map[int]*subscriber)}
}

// Subscribe registers a subscriber for the given categories (all categories
// when none are given) and returns the receiving channel. The channel is
// closed when the provided context ends.
func (s *Stream) Subscribe(ctx context.Context, categories ...Category) <-chan Alert {
	sub := &subscriber{ch: make(chan Alert, 16)}
	if len(categories) > 0 {
		sub.categories = make(map[Category]struct{}, len(categories))
		for _, c := range categories {
			sub.categories[c] = struct{}{}
		}
	}

	s.mu.Lock()
	subID := s.next
	s.next++
	s.subs[subID] = sub
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, subID)
		close(sub.ch)
		s.mu.Unlock()
	}()

	return sub.ch
}

// Publish fans the alert out to all matching subscribers.
func (s *Stream) Publish(alert Alert) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.subs {
		if sub.categories != nil {
			if _, ok := sub.categories[alert.Category]; !ok {
				continue
			}
		}
		select {
		case sub.ch <- alert:
		default:
			// Drop when subscriber is slow to avoid blocking.
		}
	}
}
