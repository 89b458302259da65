package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rohitsengarppv-gif/multimallpro/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func activeCoupon(id, vendor, code string, kind domain.CouponKind, value string) *domain.Coupon {
	return &domain.Coupon{
		ID:        id,
		VendorID:  vendor,
		Code:      code,
		Kind:      kind,
		Value:     dec(value),
		Status:    domain.CouponStatusActive,
		StartDate: baseTime.AddDate(0, -1, 0),
		EndDate:   baseTime.AddDate(0, 1, 0),
	}
}

func newCatalog(coupons ...*domain.Coupon) (*CouponCatalog, *mockCouponRepo, *mockCache) {
	repo := newMockCouponRepo(coupons...)
	c := newMockCache()
	catalog := NewCouponCatalog(repo, c)
	catalog.now = func() time.Time { return baseTime }
	return catalog, repo, c
}

func TestCouponCatalog_FindByCodeIsCaseInsensitive(t *testing.T) {
	catalog, _, _ := newCatalog(activeCoupon("c1", "vendor-1", "save10", domain.CouponKindFixed, "10"))

	got, err := catalog.FindByCode(context.Background(), "vendor-1", "Save10")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "SAVE10", got.Code)

	got, err = catalog.FindByCode(context.Background(), "vendor-2", "SAVE10")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCouponCatalog_ListActiveUsesCache(t *testing.T) {
	live := activeCoupon("c1", "vendor-1", "LIVE", domain.CouponKindFixed, "10")
	paused := activeCoupon("c2", "vendor-1", "PAUSED", domain.CouponKindFixed, "10")
	paused.Status = domain.CouponStatusPaused
	catalog, repo, c := newCatalog(live, paused)
	ctx := context.Background()

	list, err := catalog.ListActive(ctx, "vendor-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "LIVE", list[0].Code)

	assert.Eventually(t, func() bool { return c.has("vendor-1") }, time.Second, 10*time.Millisecond)

	_, err = catalog.ListActive(ctx, "vendor-1")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.listCalls())
}

func TestCouponCatalog_ListActiveFallsBackOnCacheError(t *testing.T) {
	catalog, repo, c := newCatalog(activeCoupon("c1", "vendor-1", "LIVE", domain.CouponKindFixed, "10"))
	c.getErr = errors.New("redis down")

	list, err := catalog.ListActive(context.Background(), "vendor-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 1, repo.listCalls())
}

func TestCouponCatalog_ListActiveConcurrentCallers(t *testing.T) {
	catalog, repo, _ := newCatalog(activeCoupon("c1", "vendor-1", "LIVE", domain.CouponKindFixed, "10"))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			list, err := catalog.ListActive(context.Background(), "vendor-1")
			assert.NoError(t, err)
			assert.Len(t, list, 1)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, repo.listCalls(), 20)
	assert.GreaterOrEqual(t, repo.listCalls(), 1)
}

func TestCouponCatalog_Create(t *testing.T) {
	catalog, _, c := newCatalog()
	ctx := context.Background()

	coupon := activeCoupon("", "vendor-1", "new20", domain.CouponKindPercentage, "20")
	coupon.MaxDiscountCap = decPtr("100")
	require.NoError(t, catalog.Create(ctx, coupon))
	assert.Contains(t, c.deletions(), "vendor-1")

	dup := activeCoupon("", "vendor-1", "NEW20", domain.CouponKindFixed, "5")
	requireReason(t, catalog.Create(ctx, dup), domain.ReasonInvalidCoupon)
}

func TestCouponCatalog_CreateValidation(t *testing.T) {
	catalog, _, _ := newCatalog()
	ctx := context.Background()

	tooMuch := activeCoupon("", "vendor-1", "BIG", domain.CouponKindPercentage, "150")
	requireReason(t, catalog.Create(ctx, tooMuch), domain.ReasonInvalidCoupon)

	capped := activeCoupon("", "vendor-1", "CAP", domain.CouponKindFixed, "10")
	capped.MaxDiscountCap = decPtr("5")
	requireReason(t, catalog.Create(ctx, capped), domain.ReasonInvalidCoupon)

	backwards := activeCoupon("", "vendor-1", "BACK", domain.CouponKindFixed, "10")
	backwards.EndDate = backwards.StartDate.Add(-time.Hour)
	requireReason(t, catalog.Create(ctx, backwards), domain.ReasonInvalidCoupon)

	noVendor := activeCoupon("", "", "NOVENDOR", domain.CouponKindFixed, "10")
	requireReason(t, catalog.Create(ctx, noVendor), domain.ReasonInvalidCoupon)

	unknown := activeCoupon("", "vendor-1", "ODD", "bogo", "10")
	requireReason(t, catalog.Create(ctx, unknown), domain.ReasonInvalidCoupon)
}
