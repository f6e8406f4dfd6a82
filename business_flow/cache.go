package businessflow

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/amirphl/nightpulse/config"
	"github.com/redis/go-redis/v9"
)

func redisKey(cfg config.CacheConfig, key string) string {
	return cfg.RedisPrefix + key
}

// jsonCache stores JSON values in Redis. A nil client turns every call into
// a miss; Redis errors are logged and treated as misses.
type jsonCache struct {
	rc  *redis.Client
	cfg config.CacheConfig
}

func (c jsonCache) enabled() bool {
	return c.rc != nil
}

func (c jsonCache) get(ctx context.Context, key string, dst any) bool {
	if !c.enabled() {
		return false
	}
	raw, err := c.rc.Get(ctx, redisKey(c.cfg, key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("cache: get %s: %v", key, err)
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		log.Printf("cache: decode %s: %v", key, err)
		return false
	}
	return true
}

func (c jsonCache) set(ctx context.Context, key string, value any, ttl time.Duration) {
	if !c.enabled() {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		log.Printf("cache: encode %s: %v", key, err)
		return
	}
	if ttl <= 0 {
		ttl = c.cfg.DefaultTTL
	}
	if err := c.rc.Set(ctx, redisKey(c.cfg, key), raw, ttl).Err(); err != nil {
		log.Printf("cache: set %s: %v", key, err)
	}
}

func (c jsonCache) del(ctx context.Context, keys ...string) {
	if !c.enabled() || len(keys) == 0 {
		return
	}
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		full = append(full, redisKey(c.cfg, k))
	}
	if err := c.rc.Del(ctx, full...).Err(); err != nil {
		log.Printf("cache: del %v: %v", keys, err)
	}
}
