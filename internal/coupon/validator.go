// Package coupon decides whether a coupon may be redeemed against a cart and
// how much it is worth. Evaluation is pure: the same Input always yields the
// same Result.
package coupon

import (
	"time"

	"github.com/rohitsengarppv-gif/multimallpro/internal/domain"
	"github.com/rohitsengarppv-gif/multimallpro/internal/pricing"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ScopeItem describes one cart line for vendor and restriction checks.
type ScopeItem struct {
	ProductID   string
	VendorID    string
	CategoryIDs []string
}

type Input struct {
	Subtotal          decimal.Decimal
	Coupon            *domain.Coupon
	FirstTimeCustomer bool
	// At is the finalization timestamp used for the validity window.
	At time.Time
	// Scope, when non-nil, must contain a line of the coupon's vendor that
	// also satisfies its product/category restrictions.
	Scope []ScopeItem
}

type Result struct {
	Accepted            bool
	DiscountAmount      decimal.Decimal
	AppliesFreeShipping bool
	Reason              domain.Reason
	Message             string
}

// Err returns the rejection as an error, or nil when accepted.
func (r Result) Err() error {
	if r.Accepted {
		return nil
	}
	return &domain.RejectionError{Reason: r.Reason, Message: r.Message}
}

// Discount converts an accepted result into pricing input.
func (r Result) Discount() *pricing.Discount {
	if !r.Accepted {
		return nil
	}
	return &pricing.Discount{Amount: r.DiscountAmount, FreeShipping: r.AppliesFreeShipping}
}

func reject(reason domain.Reason, msg string) Result {
	return Result{Reason: reason, Message: msg}
}

// Evaluate runs the eligibility checks in a fixed order; the first failing
// check determines the reason.
func Evaluate(in Input) Result {
	c := in.Coupon
	if c == nil || !c.RedeemableAt(in.At) {
		return reject(domain.ReasonCouponNotApplicable, "coupon is not applicable")
	}
	if in.Scope != nil && !inScope(c, in.Scope) {
		return reject(domain.ReasonCouponNotApplicable, "coupon does not apply to the items in this cart")
	}
	if c.Exhausted() {
		return reject(domain.ReasonUsageLimitReached, "coupon usage limit has been reached")
	}
	if c.MinOrderAmount != nil && in.Subtotal.LessThan(*c.MinOrderAmount) {
		return reject(domain.ReasonMinimumOrderNotMet,
			"minimum order amount of "+c.MinOrderAmount.StringFixed(pricing.Places)+" not met")
	}
	if c.FirstTimeCustomersOnly && !in.FirstTimeCustomer {
		return reject(domain.ReasonNotEligible, "coupon is only valid for first-time customers")
	}

	return Result{
		Accepted:            true,
		DiscountAmount:      DiscountFor(c, in.Subtotal),
		AppliesFreeShipping: c.Kind == domain.CouponKindFreeShipping,
	}
}

// DiscountFor computes the discount amount of c on subtotal without any
// eligibility checks. The result is within [0, subtotal].
func DiscountFor(c *domain.Coupon, subtotal decimal.Decimal) decimal.Decimal {
	var amount decimal.Decimal
	switch c.Kind {
	case domain.CouponKindPercentage:
		amount = subtotal.Mul(c.Value).Div(hundred).Round(pricing.Places)
		if c.MaxDiscountCap != nil && amount.GreaterThan(*c.MaxDiscountCap) {
			amount = *c.MaxDiscountCap
		}
	case domain.CouponKindFixed:
		amount = decimal.Min(c.Value, subtotal)
	default:
		return decimal.Zero
	}

	if amount.IsNegative() {
		return decimal.Zero
	}
	return decimal.Min(amount, subtotal)
}

func inScope(c *domain.Coupon, items []ScopeItem) bool {
	products := toSet(c.ProductIDs)
	categories := toSet(c.CategoryIDs)

	for _, it := range items {
		if it.VendorID != c.VendorID {
			continue
		}
		if !c.Restricted() {
			return true
		}
		if _, ok := products[it.ProductID]; ok {
			return true
		}
		for _, cat := range it.CategoryIDs {
			if _, ok := categories[cat]; ok {
				return true
			}
		}
	}
	return false
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
