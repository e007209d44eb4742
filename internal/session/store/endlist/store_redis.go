// Package endlist tracks terminated session ids so every instance observes
// an explicit end immediately, without waiting for the natural token expiry.
package endlist

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	id "opsgate/pkg/domain"
)

var isEndedDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "opsgate_session_end_check_duration_ms",
	Help:    "Latency of ended-session list checks in milliseconds",
	Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
})

const endedSessionKeyPrefix = "esl:sid:"

// RedisList is the production implementation for distributed deployments
// where multiple instances share terminal session state.
type RedisList struct {
	client *redis.Client
}

// NewRedis constructs a Redis-backed ended-session list.
func NewRedis(client *redis.Client) *RedisList {
	return &RedisList{client: client}
}

// MarkEnded records the session as terminal. TTL should cover the remaining
// natural token lifetime; after that the token rejects itself on expiry.
func (l *RedisList) MarkEnded(ctx context.Context, sessionID id.SessionID, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	key := endedSessionKeyPrefix + sessionID.String()
	// Key existence is the signal; the value is a marker.
	return l.client.Set(ctx, key, "1", ttl).Err()
}

// IsEnded checks whether the session was explicitly terminated.
func (l *RedisList) IsEnded(ctx context.Context, sessionID id.SessionID) (bool, error) {
	start := time.Now()
	defer func() {
		isEndedDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	key := endedSessionKeyPrefix + sessionID.String()
	err := l.client.Get(ctx, key).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
