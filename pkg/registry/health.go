package registry

import (
	"context"
	"time"
)

// StartHealthSweeper runs sweepHealth on a fixed interval until ctx is
// canceled, demoting components whose heartbeats have lapsed past the
// unhealthy threshold.
func (r *Registry) StartHealthSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				r.sweepHealth(now)
			}
		}
	}()
}
