package cache

import (
	"context"
	"fmt"

	"github.com/coocood/freecache"
	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

const tagKeyPrefix = "gymhustle-cache-tag||"

// TaggedCache is a small in-process cache with coarse, tag-based
// invalidation. Cached entries live in freecache; the set of cache keys
// registered under each tag lives in redis, so a write handler can drop
// a whole resource family (e.g. all cached workout reads of one user)
// without knowing the individual query keys.
type TaggedCache struct {
	store       *freecache.Cache
	redisClient *redis.Client
	expireSecs  int
}

func NewTaggedCache(sizeBytes, expireSecs int, redisClient *redis.Client) *TaggedCache {
	return &TaggedCache{
		store:       freecache.NewCache(sizeBytes),
		redisClient: redisClient,
		expireSecs:  expireSecs,
	}
}

func (c *TaggedCache) Get(key string) ([]byte, bool) {
	val, err := c.store.Get([]byte(key))
	if err != nil {
		return nil, false
	}
	return val, true
}

func (c *TaggedCache) Set(ctx context.Context, key string, value []byte, tags ...string) error {
	if err := c.store.Set([]byte(key), value, c.expireSecs); err != nil {
		return fmt.Errorf("cache set [%s]: %w", key, err)
	}

	for _, tag := range tags {
		if err := c.redisClient.SAdd(ctx, tagKeyPrefix+tag, key).Err(); err != nil {
			return fmt.Errorf("register cache key [%s] under tag [%s]: %w", key, tag, err)
		}
	}

	return nil
}

// Invalidate drops all cached entries registered under the given tags.
func (c *TaggedCache) Invalidate(ctx context.Context, tags ...string) {
	for _, tag := range tags {
		tagKey := tagKeyPrefix + tag
		keys, err := c.redisClient.SMembers(ctx, tagKey).Result()
		if err != nil {
			log.Errorf("cache invalidate, get keys for tag [%s]: %s", tag, err)
			continue
		}

		for _, key := range keys {
			c.store.Del([]byte(key))
		}

		if err := c.redisClient.Del(ctx, tagKey).Err(); err != nil {
			log.Errorf("cache invalidate, del tag [%s]: %s", tag, err)
		}
	}
}
