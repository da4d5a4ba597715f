package tasks

import (
	"context"
	"fmt"
	"time"
)

// newCaptureExpiryTask drops SQL-stored admin input captures older than redis.capture_ttl.
func newCaptureExpiryTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", TaskCaptureExpiry)

	return func(ctx context.Context) error {
		ttl := deps.Config.Redis.CaptureTTL
		if ttl <= 0 {
			log.DebugContext(ctx, "Capture expiry disabled, no TTL configured")
			return nil
		}

		deleted, err := deps.Store.DeleteExpiredCaptures(ctx, time.Now().UTC().Add(-ttl))
		if err != nil {
			return fmt.Errorf("capture expiry failed: %w", err)
		}
		if deleted > 0 {
			log.InfoContext(ctx, "Expired admin input captures removed", "count", deleted)
		}
		return nil
	}
}
