package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type CouponKind string

const (
	CouponKindPercentage   CouponKind = "percentage"
	CouponKindFixed        CouponKind = "fixed"
	CouponKindFreeShipping CouponKind = "free_shipping"
)

type CouponStatus string

const (
	CouponStatusDraft   CouponStatus = "draft"
	CouponStatusPending CouponStatus = "pending"
	CouponStatusActive  CouponStatus = "active"
	CouponStatusPaused  CouponStatus = "paused"
	CouponStatusExpired CouponStatus = "expired"
)

// Coupon is a vendor-scoped discount definition. UsageCount only ever grows
// and never exceeds UsageLimit when a limit is set.
type Coupon struct {
	ID                     string           `bson:"_id" json:"id"`
	VendorID               string           `bson:"vendor_id" json:"vendor_id"`
	Code                   string           `bson:"code" json:"code"`
	Description            string           `bson:"description,omitempty" json:"description,omitempty"`
	Kind                   CouponKind       `bson:"kind" json:"kind"`
	Value                  decimal.Decimal  `bson:"value" json:"value"`
	MinOrderAmount         *decimal.Decimal `bson:"min_order_amount" json:"min_order_amount,omitempty"`
	MaxDiscountCap         *decimal.Decimal `bson:"max_discount_cap" json:"max_discount_cap,omitempty"`
	UsageLimit             *int64           `bson:"usage_limit" json:"usage_limit,omitempty"`
	UsageCount             int64            `bson:"usage_count" json:"usage_count"`
	FirstTimeCustomersOnly bool             `bson:"first_time_customers_only" json:"first_time_customers_only"`
	ProductIDs             []string         `bson:"product_ids,omitempty" json:"product_ids,omitempty"`
	CategoryIDs            []string         `bson:"category_ids,omitempty" json:"category_ids,omitempty"`
	StartDate              time.Time        `bson:"start_date" json:"start_date"`
	EndDate                time.Time        `bson:"end_date" json:"end_date"`
	Status                 CouponStatus     `bson:"status" json:"status"`
	CreatedAt              time.Time        `bson:"created_at" json:"created_at"`
	UpdatedAt              time.Time        `bson:"updated_at" json:"updated_at"`
}

// NormalizeCode makes coupon codes case-insensitive.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// InWindow reports whether t falls inside [StartDate, EndDate]. A zero
// EndDate leaves the window open-ended.
func (c *Coupon) InWindow(t time.Time) bool {
	if t.Before(c.StartDate) {
		return false
	}
	if !c.EndDate.IsZero() && t.After(c.EndDate) {
		return false
	}
	return true
}

// RedeemableAt reports whether the coupon is active and inside its window.
func (c *Coupon) RedeemableAt(t time.Time) bool {
	return c.Status == CouponStatusActive && c.InWindow(t)
}

func (c *Coupon) Exhausted() bool {
	return c.UsageLimit != nil && c.UsageCount >= *c.UsageLimit
}

func (c *Coupon) Restricted() bool {
	return len(c.ProductIDs) > 0 || len(c.CategoryIDs) > 0
}
