package cache

import (
	"context"
	"errors"

	"github.com/rohitsengarppv-gif/multimallpro/internal/domain"
)

// CouponCache holds the active coupon listing per vendor. An empty vendor id
// is the cross-vendor listing.
type CouponCache interface {
	Get(ctx context.Context, vendorID string) ([]domain.Coupon, error)
	Set(ctx context.Context, vendorID string, coupons []domain.Coupon) error
	Delete(ctx context.Context, vendorID string) error
}

var ErrCacheMiss = errors.New("cache miss")
