package redis

import (
	"context"
	"errors"

	"github.com/lingoquest/lingoquest-backend/internal/application/query"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS REPORT CACHE
// Cache-aside store for assembled task-progress reports. The write side
// invalidates on every award; the TTL covers everything else.
// ══════════════════════════════════════════════════════════════════════════════

// ProgressCache implements query.ProgressReportCache and the command layer's
// invalidation hook on top of the shared Cache client.
type ProgressCache struct {
	cache *Cache
}

// NewProgressCache creates a new ProgressCache.
func NewProgressCache(cache *Cache) *ProgressCache {
	return &ProgressCache{cache: cache}
}

// Get returns the cached report, or (nil, nil) on a miss.
func (c *ProgressCache) Get(ctx context.Context, userID string) (*query.TaskProgressReport, error) {
	var report query.TaskProgressReport
	err := c.cache.Get(ctx, ProgressKey(userID), &report)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, nil
		}
		return nil, err
	}
	return &report, nil
}

// Set stores the report with the standard TTL.
func (c *ProgressCache) Set(ctx context.Context, userID string, report *query.TaskProgressReport) error {
	return c.cache.Set(ctx, ProgressKey(userID), report, TTLProgressReport)
}

// Invalidate drops the cached report after an award changed it.
func (c *ProgressCache) Invalidate(ctx context.Context, userID string) error {
	return c.cache.Delete(ctx, ProgressKey(userID))
}
