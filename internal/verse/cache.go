package verse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"sermonscribe/api/internal/docctx"
)

// CacheTTL bounds how long a resolved reference stays cached. Verse text
// is immutable per translation, so the TTL only caps memory.
const CacheTTL = 24 * time.Hour

// Cache wraps a lookup with a Redis read-through cache. Negative results
// are cached too, so repeated typos do not hammer the table.
type Cache struct {
	client *redis.Client
	next   docctx.VerseLookup
	prefix string
}

// NewCache connects to Redis and fronts next with it.
func NewCache(redisURL string, next docctx.VerseLookup) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewCacheWithClient(client, next), nil
}

// NewCacheWithClient builds a cache from an existing Redis client.
func NewCacheWithClient(client *redis.Client, next docctx.VerseLookup) *Cache {
	return &Cache{client: client, next: next, prefix: "verse:"}
}

func (c *Cache) key(reference string) string {
	return c.prefix + strings.ToLower(strings.Join(strings.Fields(reference), " "))
}

// Lookup serves from Redis when possible, falling through to the backing
// lookup and writing the result back. Redis failures degrade to direct
// lookups rather than erroring the caller.
func (c *Cache) Lookup(ctx context.Context, reference string) (docctx.LookupResult, error) {
	cached, err := c.get(ctx, reference)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, errNotCached) {
		log.Printf("verse: cache read failed, going direct: %v", err)
	}

	result, err := c.next.Lookup(ctx, reference)
	if err != nil {
		return docctx.LookupResult{}, err
	}
	c.put(ctx, reference, result)
	return result, nil
}

// errNotCached distinguishes a cache miss from a Redis failure.
var errNotCached = errors.New("not cached")

func (c *Cache) get(ctx context.Context, reference string) (docctx.LookupResult, error) {
	raw, err := c.client.Get(ctx, c.key(reference)).Result()
	if errors.Is(err, redis.Nil) {
		return docctx.LookupResult{}, errNotCached
	}
	if err != nil {
		return docctx.LookupResult{}, fmt.Errorf("cache get: %w", err)
	}
	var result docctx.LookupResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return docctx.LookupResult{}, fmt.Errorf("decode cached verse: %w", err)
	}
	return result, nil
}

func (c *Cache) put(ctx context.Context, reference string, result docctx.LookupResult) {
	raw, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.key(reference), raw, CacheTTL).Err(); err != nil {
		log.Printf("verse: cache write failed: %v", err)
	}
}

// Close releases the Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}

var _ docctx.VerseLookup = (*Cache)(nil)
