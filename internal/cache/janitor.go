package cache

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Cleaner is anything with an active expiry sweep.
type Cleaner interface {
	Cleanup() int
}

// StartJanitor calls c.Cleanup every interval until ctx is cancelled.
// The returned channel is closed once the goroutine has exited.
func StartJanitor(ctx context.Context, c Cleaner, interval time.Duration, logger zerolog.Logger) <-chan struct{} {
	done := make(chan struct{})
	if interval <= 0 {
		interval = DefaultTTL
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := c.Cleanup(); removed > 0 {
					logger.Debug().Int("removed", removed).Msg("cache sweep")
				}
			}
		}
	}()
	return done
}
