package forecast

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache keeps recent suggestions in redis. The engine is read-only, so a
// short TTL bounds staleness without correctness risk. All cache errors are
// swallowed; a miss just recomputes.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func cacheKey(clinicID, productID string) string {
	return fmt.Sprintf("forecast:%s:%s", clinicID, productID)
}

// Get returns a cached suggestion, reporting whether one was found.
func (c *Cache) Get(ctx context.Context, clinicID, productID string) (Suggestion, bool) {
	if c == nil || c.client == nil {
		return Suggestion{}, false
	}
	raw, err := c.client.Get(ctx, cacheKey(clinicID, productID)).Bytes()
	if err != nil {
		return Suggestion{}, false
	}
	var s Suggestion
	if err := json.Unmarshal(raw, &s); err != nil {
		return Suggestion{}, false
	}
	return s, true
}

// Set stores a suggestion with the configured TTL.
func (c *Cache) Set(ctx context.Context, clinicID string, s Suggestion) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, cacheKey(clinicID, s.ProductID), raw, c.ttl).Err()
}
