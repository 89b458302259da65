package pricing

import (
	"github.com/rohitsengarppv-gif/multimallpro/internal/domain"
	"github.com/shopspring/decimal"
)

// Money is carried with two decimal places.
const Places = 2

type Config struct {
	FreeShippingThreshold decimal.Decimal
	FlatShippingFee       decimal.Decimal
	TaxRate               decimal.Decimal
}

// Discount is an accepted coupon outcome as consumed by the engine.
type Discount struct {
	Amount       decimal.Decimal
	FreeShipping bool
}

// Engine computes the canonical price breakdown. It holds no mutable state
// and is safe for concurrent use.
type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

func (e *Engine) Config() Config {
	return e.cfg
}

func (e *Engine) Subtotal(lines []domain.CartLineItem) decimal.Decimal {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.LineTotal())
	}
	return subtotal.Round(Places)
}

// Price returns the breakdown for lines with an optional accepted discount.
// Callers reject negative prices and quantities below one beforehand.
func (e *Engine) Price(lines []domain.CartLineItem, discount *Discount) domain.PriceBreakdown {
	subtotal := e.Subtotal(lines)

	discountAmount := decimal.Zero
	freeShipping := false
	if discount != nil {
		discountAmount = decimal.Min(discount.Amount.Round(Places), subtotal)
		if discountAmount.IsNegative() {
			discountAmount = decimal.Zero
		}
		freeShipping = discount.FreeShipping
	}

	shipping := e.cfg.FlatShippingFee.Round(Places)
	if freeShipping || subtotal.GreaterThan(e.cfg.FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	// tax is levied on the discounted amount, never on shipping
	tax := subtotal.Sub(discountAmount).Mul(e.cfg.TaxRate).Round(Places)

	return domain.PriceBreakdown{
		Subtotal:       subtotal,
		DiscountAmount: discountAmount,
		ShippingAmount: shipping,
		TaxAmount:      tax,
		GrandTotal:     subtotal.Sub(discountAmount).Add(shipping).Add(tax),
	}
}
