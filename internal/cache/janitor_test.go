package cache

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestStartJanitor_SweepsExpiredEntries(t *testing.T) {
	clock := newFakeClock()
	c := newTestCache[int](clock, 10)
	c.Set("a", 1, time.Second)
	c.Set("b", 2, time.Hour)
	clock.Advance(2 * time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := StartJanitor(ctx, c, 5*time.Millisecond, zerolog.Nop())

	require.Eventually(t, func() bool { return c.Len() == 1 }, time.Second, 5*time.Millisecond)
	require.True(t, c.Has("b"))

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop after cancel")
	}
}
