package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rohitsengarppv-gif/multimallpro/internal/domain"
)

const allVendors = "_all"

func NewRedisCache(client redis.UniversalClient, baseTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:  client,
		baseTTL: baseTTL,
	}
}

type RedisCache struct {
	client  redis.UniversalClient
	baseTTL time.Duration
}

func (r *RedisCache) Get(ctx context.Context, vendorID string) ([]domain.Coupon, error) {
	data, err := r.client.Get(ctx, cacheKey(vendorID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var coupons []domain.Coupon
	if err := json.Unmarshal(data, &coupons); err != nil {
		return nil, fmt.Errorf("unmarshal coupons failed: %w", err)
	}
	return coupons, nil
}

func (r *RedisCache) Set(ctx context.Context, vendorID string, coupons []domain.Coupon) error {
	data, err := json.Marshal(coupons)
	if err != nil {
		return fmt.Errorf("marshal coupons failed: %w", err)
	}

	if err := r.client.Set(ctx, cacheKey(vendorID), data, r.ttl()).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Delete drops the vendor listing together with the cross-vendor one, which
// may contain the same coupons.
func (r *RedisCache) Delete(ctx context.Context, vendorID string) error {
	if err := r.client.Del(ctx, cacheKey(vendorID), cacheKey("")).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// ttl spreads expiry by up to a fifth of the base TTL.
func (r *RedisCache) ttl() time.Duration {
	spread := int64(r.baseTTL / 5)
	if spread <= 0 {
		return r.baseTTL
	}
	return r.baseTTL + time.Duration(rand.Int63n(spread))
}

func cacheKey(vendorID string) string {
	if vendorID == "" {
		vendorID = allVendors
	}
	return fmt.Sprintf("coupons:active:%s", vendorID)
}
