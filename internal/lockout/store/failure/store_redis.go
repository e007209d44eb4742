package failure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"opsgate/pkg/platform/sentinel"
)

const (
	failurePrefix = "lockout:fail:"
	lockPrefix    = "lockout:lock:"
)

// RedisStore keeps failure counters and hard-lock flags in Redis so lockout
// state survives restarts and is shared across replicas.
type RedisStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// RecordFailure increments the failure counter and returns the new count.
// The window TTL is set on first failure only, so the window is anchored to
// the first failure rather than sliding.
func (s *RedisStore) RecordFailure(ctx context.Context, identifier string, window time.Duration) (int, error) {
	key := failurePrefix + identifier
	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("increment failure counter: %w", sentinel.ErrUnavailable)
	}
	if count == 1 {
		if err := s.client.Expire(ctx, key, window).Err(); err != nil {
			return int(count), fmt.Errorf("set failure window: %w", sentinel.ErrUnavailable)
		}
	}
	return int(count), nil
}

func (s *RedisStore) Lock(ctx context.Context, identifier string, duration time.Duration) error {
	if err := s.client.Set(ctx, lockPrefix+identifier, "1", duration).Err(); err != nil {
		return fmt.Errorf("set hard lock: %w", sentinel.ErrUnavailable)
	}
	return nil
}

func (s *RedisStore) IsLocked(ctx context.Context, identifier string) (bool, error) {
	err := s.client.Get(ctx, lockPrefix+identifier).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check hard lock: %w", sentinel.ErrUnavailable)
	}
	return true, nil
}

func (s *RedisStore) Clear(ctx context.Context, identifier string) error {
	if err := s.client.Del(ctx, failurePrefix+identifier, lockPrefix+identifier).Err(); err != nil {
		return fmt.Errorf("clear lockout state: %w", sentinel.ErrUnavailable)
	}
	return nil
}
