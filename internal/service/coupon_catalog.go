package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rohitsengarppv-gif/multimallpro/internal/cache"
	"github.com/rohitsengarppv-gif/multimallpro/internal/domain"
	"github.com/rohitsengarppv-gif/multimallpro/internal/repository"
	"github.com/rohitsengarppv-gif/multimallpro/pkg/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var hundred = decimal.NewFromInt(100)

// CouponCatalog serves coupon definitions. Listings are cached per vendor;
// lookups by code always hit the store so redemption sees fresh usage counts.
type CouponCatalog struct {
	repo  repository.CouponRepository
	cache cache.CouponCache
	sfg   singleflight.Group
	now   func() time.Time
}

func NewCouponCatalog(repo repository.CouponRepository, cache cache.CouponCache) *CouponCatalog {
	return &CouponCatalog{
		repo:  repo,
		cache: cache,
		now:   time.Now,
	}
}

// FindByCode returns nil and no error when the vendor has no such code.
func (c *CouponCatalog) FindByCode(ctx context.Context, vendorID, code string) (*domain.Coupon, error) {
	coupon, err := c.repo.FindByCode(ctx, vendorID, code)
	if errors.Is(err, repository.ErrCouponNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find coupon: %w", err)
	}
	return coupon, nil
}

func (c *CouponCatalog) ListActive(ctx context.Context, vendorID string) ([]domain.Coupon, error) {
	log := logger.FromContext(ctx)

	v, err, _ := c.sfg.Do(vendorID, func() (interface{}, error) {
		coupons, err := c.cache.Get(ctx, vendorID)
		if err == nil {
			return coupons, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Warn("coupon cache get failed", zap.String("vendor_id", vendorID), zap.Error(err))
		}

		coupons, err = c.repo.ListActive(ctx, vendorID, c.now())
		if err != nil {
			return nil, fmt.Errorf("list active coupons: %w", err)
		}

		go func() {
			setCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := c.cache.Set(setCtx, vendorID, coupons); err != nil {
				log.Warn("coupon cache set failed", zap.String("vendor_id", vendorID), zap.Error(err))
			}
		}()
		return coupons, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Coupon), nil
}

// Create registers a vendor coupon. Codes are stored upper case.
func (c *CouponCatalog) Create(ctx context.Context, coupon *domain.Coupon) error {
	if err := validateCoupon(coupon); err != nil {
		return err
	}
	if coupon.Status == "" {
		coupon.Status = domain.CouponStatusDraft
	}

	if err := c.repo.Create(ctx, coupon); err != nil {
		if errors.Is(err, repository.ErrDuplicateCoupon) {
			return domain.Reject(domain.ReasonInvalidCoupon, "coupon code %s already exists", domain.NormalizeCode(coupon.Code))
		}
		return fmt.Errorf("create coupon: %w", err)
	}

	c.Invalidate(ctx, coupon.VendorID)
	return nil
}

// Invalidate drops the cached listing of a vendor. Failures are logged only;
// the entry expires on its own.
func (c *CouponCatalog) Invalidate(ctx context.Context, vendorID string) {
	delCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if err := c.cache.Delete(delCtx, vendorID); err != nil {
		logger.FromContext(ctx).Warn("coupon cache invalidate failed", zap.String("vendor_id", vendorID), zap.Error(err))
	}
}

func validateCoupon(c *domain.Coupon) error {
	invalid := func(format string, args ...any) error {
		return domain.Reject(domain.ReasonInvalidCoupon, format, args...)
	}

	if c.VendorID == "" {
		return invalid("vendor is required")
	}
	if domain.NormalizeCode(c.Code) == "" {
		return invalid("code is required")
	}
	switch c.Kind {
	case domain.CouponKindPercentage:
		if c.Value.LessThanOrEqual(decimal.Zero) || c.Value.GreaterThan(hundred) {
			return invalid("percentage value must be in (0, 100]")
		}
	case domain.CouponKindFixed:
		if c.Value.LessThanOrEqual(decimal.Zero) {
			return invalid("fixed value must be positive")
		}
		if c.MaxDiscountCap != nil {
			return invalid("max discount cap only applies to percentage coupons")
		}
	case domain.CouponKindFreeShipping:
		if c.MaxDiscountCap != nil {
			return invalid("max discount cap only applies to percentage coupons")
		}
	default:
		return invalid("unknown coupon kind %q", c.Kind)
	}
	if c.MinOrderAmount != nil && c.MinOrderAmount.IsNegative() {
		return invalid("minimum order amount must not be negative")
	}
	if c.MaxDiscountCap != nil && c.MaxDiscountCap.IsNegative() {
		return invalid("max discount cap must not be negative")
	}
	if c.UsageLimit != nil && *c.UsageLimit < 0 {
		return invalid("usage limit must not be negative")
	}
	if c.UsageCount != 0 {
		return invalid("usage count is maintained by checkout")
	}
	if !c.EndDate.IsZero() && c.EndDate.Before(c.StartDate) {
		return invalid("end date is before start date")
	}
	switch c.Status {
	case "", domain.CouponStatusDraft, domain.CouponStatusPending, domain.CouponStatusActive,
		domain.CouponStatusPaused, domain.CouponStatusExpired:
	default:
		return invalid("unknown coupon status %q", c.Status)
	}
	return nil
}
