package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type CountdownSuite struct {
	suite.Suite
}

func TestCountdownSuite(t *testing.T) {
	suite.Run(t, new(CountdownSuite))
}

func (s *CountdownSuite) TestRun() {
	s.Run("recomputes remaining from the clock and fires timeout once", func() {
		t0 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
		clock := t0

		var ticks []time.Duration
		timeouts := 0
		c := NewCountdown(t0.Add(3*time.Second),
			func(remaining time.Duration) { ticks = append(ticks, remaining) },
			func() { timeouts++ },
		)
		c.interval = time.Millisecond
		c.now = func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		}

		c.Run(context.Background())

		s.Equal([]time.Duration{2 * time.Second, time.Second}, ticks)
		s.Equal(1, timeouts)
	})

	s.Run("stop ends the loop without firing timeout", func() {
		c := NewCountdown(time.Now().Add(time.Hour), nil, func() {
			s.Fail("timeout must not fire after stop")
		})
		c.interval = time.Millisecond

		done := make(chan struct{})
		go func() {
			c.Run(context.Background())
			close(done)
		}()
		c.Stop()
		c.Stop() // repeat stop is safe

		select {
		case <-done:
		case <-time.After(time.Second):
			s.Fail("countdown did not stop")
		}
	})

	s.Run("context cancellation ends the loop", func() {
		ctx, cancel := context.WithCancel(context.Background())
		c := NewCountdown(time.Now().Add(time.Hour), nil, nil)
		c.interval = time.Millisecond

		done := make(chan struct{})
		go func() {
			c.Run(ctx)
			close(done)
		}()
		cancel()

		select {
		case <-done:
		case <-time.After(time.Second):
			s.Fail("countdown did not stop on context cancellation")
		}
	})
}
