package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rohitsengarppv-gif/multimallpro/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis, func()) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewRedisCache(client, time.Minute)

	cleanup := func() {
		client.Close()
		mr.Close()
	}
	return cache, mr, cleanup
}

func sampleCoupons() []domain.Coupon {
	capAt := decimal.RequireFromString("100")
	return []domain.Coupon{{
		ID:             "c1",
		VendorID:       "vendor-1",
		Code:           "SAVE20",
		Kind:           domain.CouponKindPercentage,
		Value:          decimal.RequireFromString("20"),
		MaxDiscountCap: &capAt,
		Status:         domain.CouponStatusActive,
	}}
}

func TestSetThenGet(t *testing.T) {
	cache, _, cleanup := setupTestRedis(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "vendor-1", sampleCoupons()))

	got, err := cache.Get(ctx, "vendor-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "SAVE20", got[0].Code)
	assert.True(t, got[0].Value.Equal(decimal.NewFromInt(20)))
	require.NotNil(t, got[0].MaxDiscountCap)
	assert.Equal(t, "100", got[0].MaxDiscountCap.String())
}

func TestGet_CacheMiss(t *testing.T) {
	cache, _, cleanup := setupTestRedis(t)
	defer cleanup()

	got, err := cache.Get(context.Background(), "vendor-1")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Nil(t, got)
}

func TestGet_InvalidJSON(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	require.NoError(t, mr.Set(cacheKey("vendor-1"), "not json"))

	_, err := cache.Get(context.Background(), "vendor-1")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestSet_TTLWithJitter(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	require.NoError(t, cache.Set(context.Background(), "vendor-1", sampleCoupons()))

	ttl := mr.TTL(cacheKey("vendor-1"))
	assert.GreaterOrEqual(t, ttl, time.Minute)
	assert.Less(t, ttl, time.Minute+12*time.Second)
}

func TestSet_ExpiresAfterTTL(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "vendor-1", sampleCoupons()))
	mr.FastForward(2 * time.Minute)

	_, err := cache.Get(ctx, "vendor-1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestDelete_AlsoDropsCrossVendorListing(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "vendor-1", sampleCoupons()))
	require.NoError(t, cache.Set(ctx, "", sampleCoupons()))

	require.NoError(t, cache.Delete(ctx, "vendor-1"))

	assert.False(t, mr.Exists(cacheKey("vendor-1")))
	assert.False(t, mr.Exists(cacheKey("")))
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "coupons:active:vendor-1", cacheKey("vendor-1"))
	assert.Equal(t, "coupons:active:_all", cacheKey(""))
}
