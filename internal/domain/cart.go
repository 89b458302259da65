package domain

import "github.com/shopspring/decimal"

const MaxLineQuantity = 99

// CartLineItem is a client-supplied cart line. Its price is only a claim;
// checkout re-prices every line from the catalog.
type CartLineItem struct {
	ProductID string            `json:"product_id"`
	VendorID  string            `json:"vendor_id"`
	UnitPrice decimal.Decimal   `json:"unit_price"`
	Quantity  int               `json:"quantity"`
	Variant   map[string]string `json:"variant,omitempty"`
}

func (l CartLineItem) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Product is the catalog view consumed by checkout.
type Product struct {
	ID          string          `bson:"_id" json:"id"`
	Name        string          `bson:"name" json:"name"`
	ImageURL    string          `bson:"image_url" json:"image_url"`
	Price       decimal.Decimal `bson:"price" json:"price"`
	IsActive    bool            `bson:"is_active" json:"is_active"`
	VendorID    string          `bson:"vendor_id" json:"vendor_id"`
	CategoryIDs []string        `bson:"category_ids,omitempty" json:"category_ids,omitempty"`
}
