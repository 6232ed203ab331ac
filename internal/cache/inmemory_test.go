package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/voxbill/voxbill/internal/config"
	"github.com/voxbill/voxbill/internal/logger"
)

func newTestCache(t *testing.T, enabled bool) *InMemoryCache {
	cfg := config.GetDefaultConfig()
	cfg.Cache.Enabled = enabled

	log, err := logger.NewLogger(cfg)
	assert.NoError(t, err)

	return NewInMemoryCache(cfg, log)
}

func TestInMemoryCacheSetGet(t *testing.T) {
	c := newTestCache(t, true)
	ctx := context.Background()

	c.Set(ctx, "k1", "v1", time.Minute)

	got, found := c.Get(ctx, "k1")
	assert.True(t, found)
	assert.Equal(t, "v1", got)

	_, found = c.Get(ctx, "missing")
	assert.False(t, found)
}

func TestInMemoryCacheDelete(t *testing.T) {
	c := newTestCache(t, true)
	ctx := context.Background()

	c.Set(ctx, "k1", "v1", time.Minute)
	c.Delete(ctx, "k1")

	_, found := c.Get(ctx, "k1")
	assert.False(t, found)
}

func TestInMemoryCacheDeleteByPrefix(t *testing.T) {
	c := newTestCache(t, true)
	ctx := context.Background()

	c.Set(ctx, GenerateKey(PrefixCalculation, "tenant_1", "a"), 1, time.Minute)
	c.Set(ctx, GenerateKey(PrefixCalculation, "tenant_1", "b"), 2, time.Minute)
	c.Set(ctx, GenerateKey(PrefixTaxRate, "tenant_1", "a"), 3, time.Minute)

	c.DeleteByPrefix(ctx, PrefixCalculation)

	_, found := c.Get(ctx, GenerateKey(PrefixCalculation, "tenant_1", "a"))
	assert.False(t, found)
	_, found = c.Get(ctx, GenerateKey(PrefixCalculation, "tenant_1", "b"))
	assert.False(t, found)
	_, found = c.Get(ctx, GenerateKey(PrefixTaxRate, "tenant_1", "a"))
	assert.True(t, found)
}

func TestInMemoryCacheDisabled(t *testing.T) {
	c := newTestCache(t, false)
	ctx := context.Background()

	c.Set(ctx, "k1", "v1", time.Minute)

	_, found := c.Get(ctx, "k1")
	assert.False(t, found)
}

func TestGenerateKey(t *testing.T) {
	key := GenerateKey(PrefixUSFRate, "tenant_1", "2026-Q3")
	assert.Equal(t, PrefixUSFRate+":tenant_1:2026-Q3", key)
}
