package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lingoquest/lingoquest-backend/internal/application/eventhandler"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACTIVITY FEED
// Per-user capped list of recent achievements, newest first. Purely a
// projection: losing it loses nothing but the timeline display.
// ══════════════════════════════════════════════════════════════════════════════

// DefaultFeedLength caps each user's feed.
const DefaultFeedLength = 50

// ActivityFeed implements eventhandler.ActivityRecorder on a Redis list.
type ActivityFeed struct {
	cache     *Cache
	maxLength int64
}

// NewActivityFeed creates a new ActivityFeed.
func NewActivityFeed(cache *Cache) *ActivityFeed {
	return &ActivityFeed{cache: cache, maxLength: DefaultFeedLength}
}

// Record prepends the entry and trims the list to the cap.
func (f *ActivityFeed) Record(ctx context.Context, userID string, entry eventhandler.ActivityEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}

	key := ActivityKey(userID)
	client := f.cache.Client()

	pipe := client.Pipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, f.maxLength-1)
	pipe.Expire(ctx, key, TTLActivityFeed)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record activity: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (f *ActivityFeed) Recent(ctx context.Context, userID string, limit int64) ([]eventhandler.ActivityEntry, error) {
	if limit <= 0 || limit > f.maxLength {
		limit = f.maxLength
	}

	raw, err := f.cache.Client().LRange(ctx, ActivityKey(userID), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read activity feed: %w", err)
	}

	entries := make([]eventhandler.ActivityEntry, 0, len(raw))
	for _, item := range raw {
		var entry eventhandler.ActivityEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			continue // skip malformed rows rather than breaking the feed
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
