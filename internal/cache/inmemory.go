package cache

import (
	"context"
	"strings"
	"time"

	goCache "github.com/patrickmn/go-cache"

	"github.com/voxbill/voxbill/internal/config"
	"github.com/voxbill/voxbill/internal/logger"
)

// DefaultExpiration is the default expiration time for cache entries
const DefaultExpiration = 30 * time.Minute

// DefaultCleanupInterval is how often expired items are removed from the cache
const DefaultCleanupInterval = 1 * time.Hour

// InMemoryCache implements the Cache interface using github.com/patrickmn/go-cache.
// Instances are constructor-injected so tests get a fresh cache with no
// cross-test leakage.
type InMemoryCache struct {
	cache  *goCache.Cache
	cfg    *config.Configuration
	logger *logger.Logger
}

// NewCache provides the Cache implementation the application is wired with
func NewCache(cfg *config.Configuration, log *logger.Logger) Cache {
	return NewInMemoryCache(cfg, log)
}

// NewInMemoryCache creates a new InMemoryCache instance
func NewInMemoryCache(cfg *config.Configuration, log *logger.Logger) *InMemoryCache {
	return &InMemoryCache{
		cache:  goCache.New(DefaultExpiration, DefaultCleanupInterval),
		cfg:    cfg,
		logger: log,
	}
}

// Get retrieves a value from the cache
func (c *InMemoryCache) Get(ctx context.Context, key string) (interface{}, bool) {
	if !c.cfg.Cache.Enabled {
		return nil, false
	}

	span := StartCacheSpan(ctx, "inmemory", "get", map[string]interface{}{"key": key})
	defer FinishSpan(span)

	return c.cache.Get(key)
}

// Set adds a value to the cache with the specified expiration
func (c *InMemoryCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) {
	if !c.cfg.Cache.Enabled {
		return
	}

	span := StartCacheSpan(ctx, "inmemory", "set", map[string]interface{}{"key": key})
	defer FinishSpan(span)

	c.cache.Set(key, value, expiration)
}

// Delete removes a key from the cache
func (c *InMemoryCache) Delete(_ context.Context, key string) {
	if !c.cfg.Cache.Enabled {
		return
	}
	c.cache.Delete(key)
}

// DeleteByPrefix removes all keys with the given prefix
func (c *InMemoryCache) DeleteByPrefix(_ context.Context, prefix string) {
	if !c.cfg.Cache.Enabled {
		return
	}

	items := c.cache.Items()
	for k := range items {
		if strings.HasPrefix(k, prefix) {
			c.cache.Delete(k)
		}
	}
}

// Flush removes all items from the cache
func (c *InMemoryCache) Flush(_ context.Context) {
	if !c.cfg.Cache.Enabled {
		return
	}
	c.cache.Flush()
}
