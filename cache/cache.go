package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Cache wraps the shared redis client for the two cached read models:
// customer order history keyed by normalized CPF, and the public storefront
// keyed by restaurant slug. All methods are best-effort; a redis failure is
// logged and treated as a miss so the database stays authoritative.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logrus.Logger
}

// New builds a cache over client. client may be nil (tests, redis disabled);
// every operation is then a no-op miss.
func New(client *redis.Client, ttl time.Duration, log *logrus.Logger) *Cache {
	return &Cache{client: client, ttl: ttl, log: log}
}

func CustomerOrdersKey(cpf string) string {
	return "orders:cpf:" + cpf
}

func StorefrontKey(slug string) string {
	return "storefront:" + slug
}

// GetJSON loads key into dest, reporting whether it was a hit.
func (c *Cache) GetJSON(ctx context.Context, key string, dest interface{}) bool {
	if c.client == nil {
		return false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Errorf("cache: get %s: %v", key, err)
		}
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		c.log.Errorf("cache: decode %s: %v", key, err)
		return false
	}
	return true
}

// SetJSON stores value under key with the configured TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, value interface{}) {
	if c.client == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		c.log.Errorf("cache: encode %s: %v", key, err)
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.log.Errorf("cache: set %s: %v", key, err)
	}
}

// Invalidate drops the given keys.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	if c.client == nil || len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.log.Errorf("cache: invalidate %v: %v", keys, err)
	}
}
