// Package dedup is a fast-path cache of fully processed payment events.
// The transactional claim remains the source of truth; this only short-cuts
// the common redelivery case without a store round trip. Every operation is
// best effort: a cache outage degrades to the claim path, never to an error.
package dedup

import (
	"context"
	"time"

	"visaflow/internal/common/logger"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "visaflow:processed_event:"

type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewCache(client *redis.Client, ttl time.Duration, log logger.Logger) *Cache {
	return &Cache{client: client, ttl: ttl, logger: log}
}

// Seen reports whether the event id was marked processed within the TTL.
// False on any cache error.
func (c *Cache) Seen(ctx context.Context, eventID string) bool {
	n, err := c.client.Exists(ctx, keyPrefix+eventID).Result()
	if err != nil {
		c.logger.WithError(err).Warn("dedup cache lookup failed", map[string]interface{}{
			"eventId": eventID,
		})
		return false
	}
	return n > 0
}

// Mark records the event id as fully processed.
func (c *Cache) Mark(ctx context.Context, eventID string) {
	if err := c.client.Set(ctx, keyPrefix+eventID, "1", c.ttl).Err(); err != nil {
		c.logger.WithError(err).Warn("dedup cache write failed", map[string]interface{}{
			"eventId": eventID,
		})
	}
}
