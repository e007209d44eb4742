//go:build integration

package endlist

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	id "opsgate/pkg/domain"
	"opsgate/pkg/testutil/containers"
)

func TestRedisListIntegration(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	ctx := context.Background()
	list := NewRedis(rc.Client)

	t.Run("unknown session is not ended", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		ended, err := list.IsEnded(ctx, id.NewSessionID())
		require.NoError(t, err)
		require.False(t, ended)
	})

	t.Run("marked session reads as ended", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		sessionID := id.NewSessionID()
		require.NoError(t, list.MarkEnded(ctx, sessionID, time.Minute))

		ended, err := list.IsEnded(ctx, sessionID)
		require.NoError(t, err)
		require.True(t, ended)
	})

	t.Run("entry lapses with its ttl", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		sessionID := id.NewSessionID()
		require.NoError(t, list.MarkEnded(ctx, sessionID, 100*time.Millisecond))

		require.Eventually(t, func() bool {
			ended, err := list.IsEnded(ctx, sessionID)
			return err == nil && !ended
		}, 5*time.Second, 50*time.Millisecond)
	})

	t.Run("non-positive ttl is a no-op", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		sessionID := id.NewSessionID()
		require.NoError(t, list.MarkEnded(ctx, sessionID, 0))

		ended, err := list.IsEnded(ctx, sessionID)
		require.NoError(t, err)
		require.False(t, ended)
	})
}
