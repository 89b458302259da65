package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentMethodCOD    PaymentMethod = "cod"
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodUPI    PaymentMethod = "upi"
	PaymentMethodWallet PaymentMethod = "wallet"
)

func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentMethodCOD, PaymentMethodCard, PaymentMethodUPI, PaymentMethodWallet:
		return true
	}
	return false
}

// PriceBreakdown is the canonical price of an order. GrandTotal always equals
// Subtotal - DiscountAmount + ShippingAmount + TaxAmount.
type PriceBreakdown struct {
	Subtotal       decimal.Decimal `bson:"subtotal" json:"subtotal"`
	DiscountAmount decimal.Decimal `bson:"discount_amount" json:"discount_amount"`
	ShippingAmount decimal.Decimal `bson:"shipping_amount" json:"shipping_amount"`
	TaxAmount      decimal.Decimal `bson:"tax_amount" json:"tax_amount"`
	GrandTotal     decimal.Decimal `bson:"grand_total" json:"grand_total"`
}

// Verify recomputes the total from the stored components.
func (b PriceBreakdown) Verify() error {
	want := b.Subtotal.Sub(b.DiscountAmount).Add(b.ShippingAmount).Add(b.TaxAmount)
	if !want.Equal(b.GrandTotal) {
		return fmt.Errorf("%w: grand total %s does not match components %s",
			ErrInvariantViolation, b.GrandTotal.StringFixed(2), want.StringFixed(2))
	}
	return nil
}

// OrderLineItem is a write-once copy of catalog data taken at checkout.
type OrderLineItem struct {
	ProductID string            `bson:"product_id" json:"product_id"`
	Name      string            `bson:"name" json:"name"`
	ImageURL  string            `bson:"image_url" json:"image_url"`
	VendorID  string            `bson:"vendor_id" json:"vendor_id"`
	UnitPrice decimal.Decimal   `bson:"unit_price" json:"unit_price"`
	Quantity  int               `bson:"quantity" json:"quantity"`
	LineTotal decimal.Decimal   `bson:"line_total" json:"line_total"`
	Variant   map[string]string `bson:"variant,omitempty" json:"variant,omitempty"`
}

type Tracking struct {
	Carrier        string `bson:"carrier,omitempty" json:"carrier,omitempty"`
	TrackingNumber string `bson:"tracking_number,omitempty" json:"tracking_number,omitempty"`
}

// Order is created once at checkout. Afterwards only Status, Tracking and
// UpdatedAt change.
type Order struct {
	ID                  string          `bson:"_id" json:"id"`
	OrderNumber         string          `bson:"order_number" json:"order_number"`
	OwnerID             string          `bson:"owner_id" json:"owner_id"`
	IdempotencyKey      string          `bson:"idempotency_key" json:"-"`
	Lines               []OrderLineItem `bson:"lines" json:"lines"`
	Pricing             PriceBreakdown  `bson:"pricing" json:"pricing"`
	AppliedDiscountCode *string         `bson:"applied_discount_code" json:"applied_discount_code"`
	CouponID            string          `bson:"coupon_id,omitempty" json:"-"`
	Currency            string          `bson:"currency" json:"currency"`
	ShippingAddress     ShippingAddress `bson:"shipping_address" json:"shipping_address"`
	PaymentMethod       PaymentMethod   `bson:"payment_method" json:"payment_method"`
	Status              OrderStatus     `bson:"status" json:"status"`
	Tracking            *Tracking       `bson:"tracking,omitempty" json:"tracking,omitempty"`
	CreatedAt           time.Time       `bson:"created_at" json:"created_at"`
	UpdatedAt           time.Time       `bson:"updated_at" json:"updated_at"`
}

// HasVendor reports whether any line of the order belongs to vendorID.
func (o *Order) HasVendor(vendorID string) bool {
	for _, l := range o.Lines {
		if l.VendorID == vendorID {
			return true
		}
	}
	return false
}
